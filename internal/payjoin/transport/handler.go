// Package transport carries payjoin requests over HTTP in both directions.
package transport

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/envelope"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	maxBodySize = 4 << 20

	routeDirect   = "inbound_direct"
	routeRelayed  = "inbound_relayed"
	routeOutbound = "outbound"
)

// ReceiverHandler serves the pj endpoint. Enveloped requests are answered
// with an enveloped response so relays never see the inner status.
type ReceiverHandler struct {
	receiver Receiver
	metrics  Metrics
	logger   *zap.Logger
}

// NewReceiverHandler returns the endpoint wrapped for cross-origin wallets.
func NewReceiverHandler(receiver Receiver, metrics Metrics, logger *zap.Logger) http.Handler {
	h := &ReceiverHandler{receiver: receiver, metrics: metrics, logger: logger}
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(h)
}

func (h *ReceiverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.write(w, routeDirect, started, http.StatusMethodNotAllowed, "", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("payjoin request too large", zap.Int64("limit", tooLarge.Limit))
		} else {
			h.logger.Warn("read payjoin request failed", zap.Error(err))
		}
		rejected := &receive.Error{Code: receive.CodeOriginalPsbtRejected}
		h.write(w, routeDirect, started, http.StatusBadRequest, "application/json", rejected.Body())
		return
	}

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == envelope.ContentTypeRequest {
		h.serveEnveloped(w, r, body, started)
		return
	}

	status, contentType, resp := h.handle(r, body, r.URL.RawQuery, r.Header)
	h.write(w, routeDirect, started, status, contentType, resp)
}

func (h *ReceiverHandler) serveEnveloped(w http.ResponseWriter, r *http.Request, data []byte, started time.Time) {
	inner, body, err := envelope.DecapsulateRequest(data)
	if err != nil {
		h.logger.Warn("malformed enveloped request", zap.Error(err))
		h.write(w, routeRelayed, started, http.StatusBadRequest, "", nil)
		return
	}

	status, _, resp := h.handle(r, body, inner.URL.RawQuery, inner.Header)
	sealed, err := envelope.EncapsulateResponse(status, nil, resp)
	if err != nil {
		h.logger.Error("encapsulate response failed", zap.Error(err))
		h.write(w, routeRelayed, started, http.StatusInternalServerError, "", nil)
		return
	}
	h.write(w, routeRelayed, started, http.StatusOK, envelope.ContentTypeResponse, sealed)
}

func (h *ReceiverHandler) handle(r *http.Request, body []byte, rawQuery string, header http.Header) (int, string, []byte) {
	proposal, err := h.receiver.HandleRequest(r.Context(), body, rawQuery, header)
	if err == nil {
		return http.StatusOK, "text/plain", proposal
	}
	pjErr := receive.AsError(err)
	status := http.StatusBadRequest
	if pjErr.Code == receive.CodeUnavailable {
		status = http.StatusServiceUnavailable
	}
	return status, "application/json", pjErr.Body()
}

func (h *ReceiverHandler) write(w http.ResponseWriter, route string, started time.Time, status int, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			h.logger.Debug("write payjoin response failed", zap.Error(err))
		}
	}
	h.metrics.ObserveHTTP(route, status, started)
}
