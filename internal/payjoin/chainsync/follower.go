// Package chainsync follows the node's active chain and feeds connected
// blocks to the payment tracker.
package chainsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/pkg/workerpool"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

type FollowerConfig struct {
	Source  BlockSource
	Metrics Metrics
	Clock   clock.Clock
	Logger  *zap.Logger
	// BlockSignal wakes the follower before the poll interval elapses.
	BlockSignal <-chan struct{}
	// StartHeight is the first height to deliver. None starts at the tip.
	StartHeight fn.Option[uint32]
	WorkerCount int
}

// Follower polls the block source and delivers blocks to its confirmers.
// Only transactions matching the registered filter are passed on.
type Follower struct {
	source      BlockSource
	metrics     Metrics
	clock       clock.Clock
	logger      *zap.Logger
	blockSignal <-chan struct{}
	startHeight fn.Option[uint32]
	workerCount int

	pollInterval  time.Duration
	retryInterval time.Duration

	mu         sync.Mutex
	confirmers []Confirmer
	txids      map[chainhash.Hash]struct{}
	outpoints  map[wire.OutPoint]struct{}
	scripts    map[string]struct{}

	// Owned by the Run goroutine.
	started bool
	next    uint32
	recent  map[uint32]chainhash.Hash
}

func NewFollower(cfg FollowerConfig) (*Follower, error) {
	if cfg.Source == nil {
		return nil, errors.New("follower block source is required")
	}
	if cfg.Metrics == nil {
		return nil, errors.New("follower metrics is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	return &Follower{
		source:        cfg.Source,
		metrics:       cfg.Metrics,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		blockSignal:   cfg.BlockSignal,
		startHeight:   cfg.StartHeight,
		workerCount:   cfg.WorkerCount,
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
		txids:         make(map[chainhash.Hash]struct{}),
		outpoints:     make(map[wire.OutPoint]struct{}),
		scripts:       make(map[string]struct{}),
		recent:        make(map[uint32]chainhash.Hash),
	}, nil
}

// AddConfirmer subscribes c to every block delivered from now on.
func (f *Follower) AddConfirmer(c Confirmer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.confirmers = append(f.confirmers, c)
}

// RegisterTx watches for txid and for outputs paying script.
func (f *Follower) RegisterTx(txid chainhash.Hash, script []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txids[txid] = struct{}{}
	if len(script) > 0 {
		f.scripts[string(script)] = struct{}{}
	}
}

// RegisterOutput watches for transactions spending outpoint.
func (f *Follower) RegisterOutput(outpoint wire.OutPoint, script []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outpoints[outpoint] = struct{}{}
	if len(script) > 0 {
		f.scripts[string(script)] = struct{}{}
	}
}

// Run follows the chain until ctx is canceled.
func (f *Follower) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered, err := f.run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("sync iteration failed, backing off", zap.Error(err), zap.Duration("sleep", f.retryInterval))
			if err := f.wait(ctx, f.retryInterval); err != nil {
				return err
			}
			continue
		}
		if delivered == maxBlocksPerSync {
			continue
		}
		if err := f.wait(ctx, f.pollInterval); err != nil {
			return err
		}
	}
}

func (f *Follower) run(ctx context.Context) (int, error) {
	started := f.clock.Now()
	delivered, err := f.sync(ctx)
	f.metrics.ObserveSync(err, delivered, started)
	return delivered, err
}

func (f *Follower) sync(ctx context.Context) (int, error) {
	tip, err := f.source.BestHeight(ctx)
	if err != nil {
		return 0, err
	}
	if !f.started {
		f.next = f.startHeight.UnwrapOr(tip)
		f.started = true
		f.logger.Info("chain follower started", zap.Uint32("height", f.next), zap.Uint32("tip", tip))
	}

	if err := f.checkReorg(ctx); err != nil {
		return 0, err
	}
	if f.next > tip {
		return 0, nil
	}

	last := min(tip, f.next+maxBlocksPerSync-1)
	heights := make([]uint32, 0, last-f.next+1)
	for h := f.next; h <= last; h++ {
		heights = append(heights, h)
	}
	blocks, err := workerpool.Map(ctx, f.workerCount, heights, f.source.BlockAt)
	if err != nil {
		return 0, err
	}

	confirmers := f.subscribers()
	var tipHeader *wire.BlockHeader
	delivered := 0
	for i, block := range blocks {
		height := heights[i]
		if prev, ok := f.recent[height-1]; ok && block.Header.PrevBlock != prev {
			f.logger.Info("chain moved during sync", zap.Uint32("height", height))
			break
		}

		if txs := f.relevant(block); len(txs) > 0 {
			for _, c := range confirmers {
				c.TransactionsConfirmed(&block.Header, txs, height)
			}
		}
		f.remember(height, block.BlockHash())
		f.next = height + 1
		tipHeader = &block.Header
		delivered++
	}

	if tipHeader != nil {
		height := f.next - 1
		for _, c := range confirmers {
			c.BestBlockUpdated(tipHeader, height)
		}
		f.metrics.ObserveTip(height)
		f.logger.Debug("blocks delivered", zap.Int("blocks", delivered), zap.Uint32("tip", height))
	}
	return delivered, nil
}

// checkReorg compares the last delivered hash with the node's chain and
// rewinds to the fork point when they differ.
func (f *Follower) checkReorg(ctx context.Context) error {
	top := f.next - 1
	if _, ok := f.recent[top]; !ok {
		return nil
	}

	// Without a common block in the window, restart from its bottom.
	rewind := f.oldest()
	for h := top; ; h-- {
		known, ok := f.recent[h]
		if !ok {
			break
		}
		hash, err := f.source.BlockHashAt(ctx, h)
		if err != nil {
			return err
		}
		if *hash == known {
			rewind = h + 1
			break
		}
		if h == 0 {
			break
		}
	}
	if rewind == f.next {
		return nil
	}

	f.logger.Warn("chain reorganization detected", zap.Uint32("rewind_to", rewind), zap.Uint32("tip", top))
	for h := range f.recent {
		if h >= rewind {
			delete(f.recent, h)
		}
	}
	f.next = rewind

	for _, c := range f.subscribers() {
		for _, confirmed := range c.RelevantTxids() {
			if confirmed.Height >= rewind {
				c.TransactionUnconfirmed(confirmed.TxID)
			}
		}
	}
	return nil
}

// relevant returns the block's transactions that match the filter. Outputs
// paying a watched script become watched outpoints.
func (f *Follower) relevant(block *wire.MsgBlock) []*wire.MsgTx {
	f.mu.Lock()
	defer f.mu.Unlock()

	var txs []*wire.MsgTx
	for _, tx := range block.Transactions {
		txid := tx.TxHash()
		match := false
		if _, ok := f.txids[txid]; ok {
			match = true
		}
		for _, in := range tx.TxIn {
			if _, ok := f.outpoints[in.PreviousOutPoint]; ok {
				match = true
			}
		}
		for i, out := range tx.TxOut {
			if _, ok := f.scripts[string(out.PkScript)]; ok {
				f.outpoints[wire.OutPoint{Hash: txid, Index: uint32(i)}] = struct{}{}
				match = true
			}
		}
		if match {
			txs = append(txs, tx)
		}
	}
	return txs
}

func (f *Follower) remember(height uint32, hash chainhash.Hash) {
	f.recent[height] = hash
	if height >= reorgWindow {
		delete(f.recent, height-reorgWindow)
	}
}

func (f *Follower) oldest() uint32 {
	oldest := f.next
	for h := range f.recent {
		oldest = min(oldest, h)
	}
	return oldest
}

func (f *Follower) subscribers() []Confirmer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Confirmer(nil), f.confirmers...)
}

func (f *Follower) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.blockSignal:
		return nil
	case <-f.clock.TickAfter(d):
		return nil
	}
}
