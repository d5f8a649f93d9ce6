// Package event is the append-only FIFO of payment outcomes handed to the
// application.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

const defaultBufferSize = 64

var ErrClosed = errors.New("event queue closed")

// Sink observes every event after it has been queued.
type Sink interface {
	Observe(event model.Event)
}

// Queue is safe for concurrent producers. Events are drained with Next or
// Wait in the order they were added.
type Queue struct {
	queue  *fn.ConcurrentQueue[model.Event]
	sinks  []Sink
	logger *zap.Logger

	quit     chan struct{}
	stopOnce sync.Once
}

func NewQueue(logger *zap.Logger, sinks ...Sink) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		queue:  fn.NewConcurrentQueue[model.Event](defaultBufferSize),
		sinks:  sinks,
		logger: logger,
		quit:   make(chan struct{}),
	}
	q.queue.Start()
	return q
}

// Add never blocks on consumers; the queue grows as needed.
func (q *Queue) Add(event model.Event) error {
	select {
	case <-q.quit:
		return ErrClosed
	default:
	}

	select {
	case q.queue.ChanIn() <- event:
	case <-q.quit:
		return ErrClosed
	}

	q.logger.Info("payment event",
		zap.String("kind", string(event.Kind)),
		zap.Stringer("txid", event.TxID),
		zap.Int64("amount", int64(event.Amount)),
		zap.String("counterparty", event.Counterparty),
		zap.String("reason", event.Reason),
	)
	for _, sink := range q.sinks {
		sink.Observe(event)
	}
	return nil
}

// Next returns the oldest event if one is ready.
func (q *Queue) Next() (model.Event, bool) {
	select {
	case event := <-q.queue.ChanOut():
		return event, true
	default:
		return model.Event{}, false
	}
}

// Wait blocks until an event is available.
func (q *Queue) Wait(ctx context.Context) (model.Event, error) {
	select {
	case event := <-q.queue.ChanOut():
		return event, nil
	case <-ctx.Done():
		return model.Event{}, ctx.Err()
	case <-q.quit:
		return model.Event{}, ErrClosed
	}
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.quit)
		q.queue.Stop()
	})
}
