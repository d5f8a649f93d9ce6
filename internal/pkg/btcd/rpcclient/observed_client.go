// Package rpcclient wraps the btcd RPC client with per-call metrics.
package rpcclient

import (
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ObservedClient reports every call to RPCMetrics under a snake_case
// operation name. Raw requests are reported under the bitcoind method name.
type ObservedClient struct {
	client     Client
	rpcMetrics RPCMetrics
}

func NewObservedClient(client Client, rpcMetrics RPCMetrics) *ObservedClient {
	return &ObservedClient{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

func (r *ObservedClient) GetBlockCount() (count int64, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_count", err, started)
	}()
	return r.client.GetBlockCount()
}

func (r *ObservedClient) GetBlockHash(blockHeight int64) (hash *chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_hash", err, started)
	}()
	return r.client.GetBlockHash(blockHeight)
}

func (r *ObservedClient) GetBlock(blockHash *chainhash.Hash) (block *wire.MsgBlock, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block", err, started)
	}()
	return r.client.GetBlock(blockHash)
}

func (r *ObservedClient) SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (hash *chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("send_raw_transaction", err, started)
	}()
	return r.client.SendRawTransaction(tx, allowHighFees)
}

func (r *ObservedClient) TestMempoolAccept(txns []*wire.MsgTx, maxFeeRate float64) (res []*btcjson.TestMempoolAcceptResult, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("test_mempool_accept", err, started)
	}()
	return r.client.TestMempoolAccept(txns, maxFeeRate)
}

func (r *ObservedClient) ListUnspent() (res []btcjson.ListUnspentResult, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("list_unspent", err, started)
	}()
	return r.client.ListUnspent()
}

func (r *ObservedClient) GetNewAddress(account string) (addr btcutil.Address, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_new_address", err, started)
	}()
	return r.client.GetNewAddress(account)
}

func (r *ObservedClient) RawRequest(method string, params []json.RawMessage) (res json.RawMessage, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe(method, err, started)
	}()
	return r.client.RawRequest(method, params)
}
