//go:build !zmq

package chainsync

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// StartBlockSignal needs the zmq build tag; without it only polling is
// available.
func StartBlockSignal(_ context.Context, addr string, _ *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}
	return nil, errors.New("built without zmq support; rebuild with -tags zmq")
}
