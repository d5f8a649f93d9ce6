package bitcoind

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

// Reject reasons bitcoind reports for a transaction it already has.
var alreadyBroadcast = []string{
	"txn-already-in-mempool",
	"txn-already-known",
	"transaction already in block chain",
	"transaction outputs already in utxo set",
}

// Broadcaster publishes transactions through bitcoind.
type Broadcaster struct {
	rpc    RPCClient
	logger *zap.Logger
}

func NewBroadcaster(rpc RPCClient, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{rpc: rpc, logger: logger}
}

// Broadcast sends tx to the node. A transaction the node already knows is
// not an error.
func (b *Broadcaster) Broadcast(ctx context.Context, tx *wire.MsgTx) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txid := tx.TxHash()
	if _, err := b.rpc.SendRawTransaction(tx, false); err != nil {
		if isAlreadyBroadcast(err.Error()) {
			b.logger.Info("transaction already broadcast", zap.Stringer("txid", txid))
			return nil
		}
		return fmt.Errorf("send raw transaction %s: %w", txid, err)
	}
	b.logger.Info("transaction broadcast", zap.Stringer("txid", txid))
	return nil
}

// CanBroadcast runs the mempool acceptance test with the node's default
// maximum fee rate.
func (b *Broadcaster) CanBroadcast(ctx context.Context, tx *wire.MsgTx) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	results, err := b.rpc.TestMempoolAccept([]*wire.MsgTx{tx}, 0)
	if err != nil {
		return false, fmt.Errorf("test mempool accept: %w", err)
	}
	if len(results) != 1 {
		return false, fmt.Errorf("expected 1 result from test mempool accept, got %d", len(results))
	}

	result := results[0]
	if !result.Allowed {
		b.logger.Debug("transaction not accepted by mempool",
			zap.Stringer("txid", tx.TxHash()),
			zap.String("reason", result.RejectReason),
		)
	}
	return result.Allowed, nil
}

func isAlreadyBroadcast(reason string) bool {
	reason = strings.ToLower(reason)
	for _, known := range alreadyBroadcast {
		if strings.Contains(reason, known) {
			return true
		}
	}
	return false
}
