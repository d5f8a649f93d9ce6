package chainsync

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/tracker"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	BlockSource interface {
		BestHeight(ctx context.Context) (uint32, error)
		BlockHashAt(ctx context.Context, height uint32) (*chainhash.Hash, error)
		BlockAt(ctx context.Context, height uint32) (*wire.MsgBlock, error)
	}
	// Confirmer receives connected blocks in height order.
	Confirmer interface {
		TransactionsConfirmed(header *wire.BlockHeader, txs []*wire.MsgTx, height uint32)
		TransactionUnconfirmed(txid chainhash.Hash)
		BestBlockUpdated(header *wire.BlockHeader, height uint32)
		RelevantTxids() []tracker.ConfirmedTx
	}
	Metrics interface {
		ObserveSync(err error, blocks int, started time.Time)
		ObserveTip(height uint32)
	}
)
