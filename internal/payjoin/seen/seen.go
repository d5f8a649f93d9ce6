// Package seen remembers the inputs of every original a receiver has
// validated, so a sender cannot probe the receiver's UTXOs with repeated
// requests.
package seen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"go.uber.org/zap"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		SeenInputs(ctx context.Context, network model.Network, inputs []model.SeenInput) ([]model.SeenInput, error)
		InsertSeenInputs(ctx context.Context, inputs []model.SeenInput) error
	}
)

// Memory is a process-local set of outpoints.
type Memory struct {
	mu   sync.RWMutex
	seen map[wire.OutPoint]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[wire.OutPoint]struct{})}
}

func (m *Memory) Contains(_ context.Context, outpoint wire.OutPoint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.seen[outpoint]
	return ok, nil
}

func (m *Memory) Remember(_ context.Context, outpoints []wire.OutPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range outpoints {
		m.seen[op] = struct{}{}
	}
	return nil
}

// Store persists outpoints in the repository and caches every hit in memory.
type Store struct {
	cache   *Memory
	repo    Repository
	network model.Network
	now     func() time.Time
	logger  *zap.Logger
}

func NewStore(repo Repository, network model.Network, logger *zap.Logger) *Store {
	return &Store{
		cache:   NewMemory(),
		repo:    repo,
		network: network,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *Store) Contains(ctx context.Context, outpoint wire.OutPoint) (bool, error) {
	if ok, _ := s.cache.Contains(ctx, outpoint); ok {
		return true, nil
	}

	found, err := s.repo.SeenInputs(ctx, s.network, []model.SeenInput{s.row(outpoint)})
	if err != nil {
		return false, fmt.Errorf("lookup seen input %s: %w", outpoint, err)
	}
	if len(found) == 0 {
		return false, nil
	}
	_ = s.cache.Remember(ctx, []wire.OutPoint{outpoint})
	return true, nil
}

func (s *Store) Remember(ctx context.Context, outpoints []wire.OutPoint) error {
	if len(outpoints) == 0 {
		return nil
	}
	rows := make([]model.SeenInput, 0, len(outpoints))
	for _, op := range outpoints {
		rows = append(rows, s.row(op))
	}
	if err := s.repo.InsertSeenInputs(ctx, rows); err != nil {
		return fmt.Errorf("insert seen inputs: %w", err)
	}
	_ = s.cache.Remember(ctx, outpoints)
	s.logger.Debug("remembered original inputs", zap.Int("inputs", len(outpoints)))
	return nil
}

func (s *Store) row(op wire.OutPoint) model.SeenInput {
	return model.SeenInput{
		Network:   s.network,
		TxID:      op.Hash.String(),
		Vout:      op.Index,
		CreatedAt: s.now().UTC(),
	}
}
