// Package tracker follows broadcast payjoin transactions until they are
// buried deep enough to report success.
package tracker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

// AntiReorgDelay is the number of blocks on top of the first confirmation
// before a payment is reported as settled.
const AntiReorgDelay = 6

var (
	ErrNoBestBlock    = errors.New("no best block known yet")
	ErrNoOwnedOutput  = errors.New("transaction pays no wallet output")
	ErrAlreadyTracked = errors.New("transaction already tracked")
)

// BestBlock is the chain tip as last reported by chain sync.
type BestBlock struct {
	Hash   chainhash.Hash
	Height uint32
}

// ConfirmedTx is a tracked transaction with at least one confirmation.
type ConfirmedTx struct {
	TxID      chainhash.Hash
	Height    uint32
	BlockHash chainhash.Hash
}

type confirmation struct {
	height uint32
	hash   chainhash.Hash
}

// trackedTx is PendingFirstConfirmation while firstConf is None and
// PendingThresholdConfirmations afterwards.
type trackedTx struct {
	tx              *wire.MsgTx
	receiver        btcutil.Address
	amount          btcutil.Amount
	broadcastHeight uint32
	broadcastHash   chainhash.Hash
	firstConf       fn.Option[confirmation]
}

// Tracker owns the tracked set and the best block. Every access goes through
// mu, and nothing external is called while it is held.
type Tracker struct {
	mu        sync.Mutex
	bestBlock fn.Option[BestBlock]
	txs       map[chainhash.Hash]*trackedTx

	filter  Filter
	events  EventQueue
	metrics Metrics
	clock   clock.Clock
	logger  *zap.Logger
}

func New(filter Filter, events EventQueue, metrics Metrics, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		txs:     make(map[chainhash.Hash]*trackedTx),
		filter:  filter,
		events:  events,
		metrics: metrics,
		clock:   clk,
		logger:  logger,
	}
}

// Track starts following tx. The first output isMine accepts is registered
// with the chain filter; a transaction without one cannot be tracked.
func (t *Tracker) Track(tx *wire.MsgTx, receiver btcutil.Address, amount btcutil.Amount, isMine func(script []byte) (bool, error)) error {
	vout := -1
	for i, out := range tx.TxOut {
		mine, err := isMine(out.PkScript)
		if err != nil {
			return fmt.Errorf("check output %d: %w", i, err)
		}
		if mine {
			vout = i
			break
		}
	}
	if vout < 0 {
		return ErrNoOwnedOutput
	}

	txid := tx.TxHash()
	t.mu.Lock()
	best, err := t.bestBlock.UnwrapOrErr(ErrNoBestBlock)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if _, ok := t.txs[txid]; ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, txid)
	}
	t.txs[txid] = &trackedTx{
		tx:              tx.Copy(),
		receiver:        receiver,
		amount:          amount,
		broadcastHeight: best.Height,
		broadcastHash:   best.Hash,
		firstConf:       fn.None[confirmation](),
	}
	pending := len(t.txs)
	t.mu.Unlock()

	script := tx.TxOut[vout].PkScript
	if t.filter != nil {
		t.filter.RegisterTx(txid, script)
		t.filter.RegisterOutput(wire.OutPoint{Hash: txid, Index: uint32(vout)}, script)
	}
	t.observePending(pending)
	t.logger.Info("tracking payjoin transaction",
		zap.Stringer("txid", txid),
		zap.Uint32("height", best.Height),
		zap.Int64("amount", int64(amount)),
	)
	return nil
}

// Forget drops txid, used when its broadcast failed.
func (t *Tracker) Forget(txid chainhash.Hash) bool {
	t.mu.Lock()
	_, ok := t.txs[txid]
	delete(t.txs, txid)
	pending := len(t.txs)
	t.mu.Unlock()

	if ok {
		t.observePending(pending)
	}
	return ok
}

// TransactionsConfirmed records the first confirmation of tracked
// transactions in a connected block. Unknown transactions are ignored.
func (t *Tracker) TransactionsConfirmed(header *wire.BlockHeader, txs []*wire.MsgTx, height uint32) {
	blockHash := header.BlockHash()
	var confirmed []chainhash.Hash

	t.mu.Lock()
	for _, tx := range txs {
		txid := tx.TxHash()
		tracked, ok := t.txs[txid]
		if !ok || tracked.firstConf.IsSome() {
			continue
		}
		tracked.firstConf = fn.Some(confirmation{height: height, hash: blockHash})
		confirmed = append(confirmed, txid)
	}
	t.mu.Unlock()

	for _, txid := range confirmed {
		t.logger.Info("payjoin transaction confirmed",
			zap.Stringer("txid", txid),
			zap.Uint32("height", height),
		)
	}
}

// BestBlockUpdated moves the tip and settles every transaction whose first
// confirmation is at least AntiReorgDelay blocks deep.
func (t *Tracker) BestBlockUpdated(header *wire.BlockHeader, height uint32) {
	var settled []*trackedTx

	t.mu.Lock()
	t.bestBlock = fn.Some(BestBlock{Hash: header.BlockHash(), Height: height})
	for txid, tracked := range t.txs {
		conf, err := tracked.firstConf.UnwrapOrErr(errUnconfirmed)
		if err != nil || height < conf.height || height-conf.height < AntiReorgDelay {
			continue
		}
		settled = append(settled, tracked)
		delete(t.txs, txid)
	}
	pending := len(t.txs)
	t.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	t.observePending(pending)
	now := t.clock.Now()
	for _, tracked := range settled {
		txid := tracked.tx.TxHash()
		event := model.SuccessEvent(txid, tracked.amount, tracked.receiver.String(), now)
		if err := t.events.Add(event); err != nil {
			t.logger.Error("queue success event failed", zap.Stringer("txid", txid), zap.Error(err))
			continue
		}
		if t.metrics != nil {
			t.metrics.ObserveSettled(event.Kind)
		}
		t.logger.Info("payjoin transaction settled", zap.Stringer("txid", txid), zap.Uint32("tip", height))
	}
}

var errUnconfirmed = errors.New("unconfirmed")

// TransactionUnconfirmed is called when a block holding txid is
// disconnected. State only moves forward, so the entry is left alone and the
// anti-reorg delay absorbs shallow reorgs.
func (t *Tracker) TransactionUnconfirmed(txid chainhash.Hash) {
	t.mu.Lock()
	_, ok := t.txs[txid]
	t.mu.Unlock()

	if ok {
		t.logger.Warn("tracked transaction unconfirmed by reorg", zap.Stringer("txid", txid))
	}
}

// RelevantTxids lists tracked transactions that have a confirmation, so
// chain sync can check them for reorgs.
func (t *Tracker) RelevantTxids() []ConfirmedTx {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ConfirmedTx, 0, len(t.txs))
	for txid, tracked := range t.txs {
		tracked.firstConf.WhenSome(func(c confirmation) {
			out = append(out, ConfirmedTx{TxID: txid, Height: c.height, BlockHash: c.hash})
		})
	}
	return out
}

func (t *Tracker) BestBlock() fn.Option[BestBlock] {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.bestBlock
}

// Pending is the number of tracked transactions.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.txs)
}

func (t *Tracker) observePending(n int) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObservePending(n)
}
