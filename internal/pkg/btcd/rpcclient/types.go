package rpcclient

import (
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Client is the part of *rpcclient.Client the node talks to.
	Client interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
		SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
		TestMempoolAccept(txns []*wire.MsgTx, maxFeeRate float64) ([]*btcjson.TestMempoolAcceptResult, error)
		ListUnspent() ([]btcjson.ListUnspentResult, error)
		GetNewAddress(account string) (btcutil.Address, error)
		RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
	}
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
