package bitcoind

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/pkg/safe"
)

// BlockSource reads the active chain from bitcoind.
type BlockSource struct {
	rpc RPCClient
}

func NewBlockSource(rpc RPCClient) *BlockSource {
	return &BlockSource{rpc: rpc}
}

// BestHeight returns the height of the node's tip.
func (s *BlockSource) BestHeight(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	height, err := safe.Uint32(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

func (s *BlockSource) BlockHashAt(ctx context.Context, height uint32) (*chainhash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.rpc.GetBlockHash(int64(height))
	if err != nil {
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	return hash, nil
}

// BlockAt returns the active-chain block at height.
func (s *BlockSource) BlockAt(ctx context.Context, height uint32) (*wire.MsgBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.BlockHashAt(ctx, height)
	if err != nil {
		return nil, err
	}
	block, err := s.rpc.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	return block, nil
}
