package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/send"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

// RelayClient posts sender requests straight to a receiver or through a
// relay.
type RelayClient struct {
	client  *http.Client
	metrics Metrics
	logger  *zap.Logger
}

func NewRelayClient(client *http.Client, metrics Metrics, logger *zap.Logger) *RelayClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{client: client, metrics: metrics, logger: logger}
}

// Post sends one request and returns the response body. Accepted and no
// content replies yield an empty body; every other non-200 reply is
// ErrUnexpectedStatus, which callers retry.
func (c *RelayClient) Post(ctx context.Context, req send.Request) (body []byte, err error) {
	started := time.Now()
	status := 0
	defer func() {
		c.metrics.ObserveHTTP(routeOutbound, status, started)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", req.URL.Redacted(), err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body failed", zap.Error(closeErr))
		}
	}()
	status = resp.StatusCode

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case status == http.StatusOK:
		return body, nil
	case status == http.StatusAccepted || status == http.StatusNoContent:
		return nil, nil
	default:
		c.logger.Debug("payjoin endpoint replied with an error status",
			zap.Int("status", status), zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
}
