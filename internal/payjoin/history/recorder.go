// Package history persists payment events in batches.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/lightningnetwork/lnd/ticker"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		InsertPaymentEvents(ctx context.Context, rows []model.PaymentEventRow) error
	}
)

// Recorder buffers events and writes them when the buffer is full, when the
// flush ticker fires, or on shutdown.
type Recorder struct {
	repo      Repository
	network   model.Network
	events    chan model.Event
	flushSize int
	ticker    ticker.Ticker
	rl        ratelimit.Limiter
	logger    *zap.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRecorder(repo Repository, network model.Network, logger *zap.Logger, flushSize int, flushInterval time.Duration, rps int) *Recorder {
	return newRecorder(repo, network, logger, flushSize, ticker.New(flushInterval), rps)
}

func newRecorder(repo Repository, network model.Network, logger *zap.Logger, flushSize int, t ticker.Ticker, rps int) *Recorder {
	if flushSize < 1 {
		flushSize = 1
	}
	return &Recorder{
		repo:      repo,
		network:   network,
		events:    make(chan model.Event, flushSize*2),
		flushSize: flushSize,
		ticker:    t,
		rl:        ratelimit.New(rps),
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

func (r *Recorder) Start(ctx context.Context) {
	r.ticker.Resume()
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop flushes what is buffered and waits for the writer to exit.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		r.wg.Wait()
		r.ticker.Stop()
	})
}

// Observe queues an event for the next flush. Events arriving after Stop
// are dropped.
func (r *Recorder) Observe(event model.Event) {
	select {
	case <-r.stop:
		r.logger.Warn("history stopped; event not recorded", zap.Stringer("txid", event.TxID))
		return
	default:
	}

	select {
	case r.events <- event:
	case <-r.stop:
		r.logger.Warn("history stopped; event not recorded", zap.Stringer("txid", event.TxID))
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()

	buf := make([]model.PaymentEventRow, 0, r.flushSize)
	flush := func(ctx context.Context) {
		if len(buf) == 0 {
			return
		}
		r.rl.Take()
		if err := r.repo.InsertPaymentEvents(ctx, buf); err != nil {
			r.logger.Error("payment events not recorded", zap.Int("size", len(buf)), zap.Error(err))
		} else {
			r.logger.Debug("payment events recorded", zap.Int("size", len(buf)))
		}
		buf = buf[:0]
	}
	drain := func() {
		for {
			select {
			case event := <-r.events:
				buf = append(buf, event.Row(r.network))
			default:
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			flush(context.WithoutCancel(ctx))
			return

		case <-r.stop:
			drain()
			flush(ctx)
			return

		case event := <-r.events:
			buf = append(buf, event.Row(r.network))
			if len(buf) >= r.flushSize {
				flush(ctx)
			}

		case <-r.ticker.Ticks():
			flush(ctx)
		}
	}
}
