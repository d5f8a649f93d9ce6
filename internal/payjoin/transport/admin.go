package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"
)

const (
	routeAdminReceive = "admin_receive"
	routeAdminSend    = "admin_send"
)

var errInvalidAmount = errors.New("amount must be a non-negative number of satoshis")

// AdminHandler lets the local operator issue payment URIs and start
// payments. It must not be exposed next to the pj endpoint.
type AdminHandler struct {
	issuer  PaymentIssuer
	payer   Payer
	metrics Metrics
	logger  *zap.Logger
}

// NewAdminHandler serves POST /receive?amount=<sat> and
// POST /send?uri=<bip21>[&amount=<sat>]. A nil issuer or payer leaves its
// route unregistered.
func NewAdminHandler(issuer PaymentIssuer, payer Payer, metrics Metrics, logger *zap.Logger) http.Handler {
	h := &AdminHandler{issuer: issuer, payer: payer, metrics: metrics, logger: logger}
	mux := http.NewServeMux()
	if issuer != nil {
		mux.HandleFunc("POST /receive", h.receive)
	}
	if payer != nil {
		mux.HandleFunc("POST /send", h.send)
	}
	return mux
}

func (h *AdminHandler) receive(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	amount, err := parseAmount(r.FormValue("amount"))
	if err != nil {
		h.write(w, routeAdminReceive, started, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.issuer.Receive(r.Context(), amount)
	if err != nil {
		h.logger.Error("issue payment uri failed", zap.Error(err))
		h.write(w, routeAdminReceive, started, http.StatusInternalServerError, "cannot issue payment uri")
		return
	}
	h.write(w, routeAdminReceive, started, http.StatusOK, u.String())
}

func (h *AdminHandler) send(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	rawURI := r.FormValue("uri")
	if rawURI == "" {
		h.write(w, routeAdminSend, started, http.StatusBadRequest, "uri is required")
		return
	}
	amount, err := parseAmount(r.FormValue("amount"))
	if err != nil {
		h.write(w, routeAdminSend, started, http.StatusBadRequest, err.Error())
		return
	}

	if amount > 0 {
		err = h.payer.SendWithAmount(rawURI, amount)
	} else {
		err = h.payer.Send(rawURI)
	}
	if err != nil {
		h.write(w, routeAdminSend, started, http.StatusBadRequest, err.Error())
		return
	}
	h.write(w, routeAdminSend, started, http.StatusAccepted, "")
}

func (h *AdminHandler) write(w http.ResponseWriter, route string, started time.Time, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if body != "" {
		if _, err := w.Write([]byte(body + "\n")); err != nil {
			h.logger.Debug("write admin response failed", zap.Error(err))
		}
	}
	h.metrics.ObserveHTTP(route, status, started)
}

// parseAmount reads a satoshi amount. Empty means none.
func parseAmount(raw string) (btcutil.Amount, error) {
	if raw == "" {
		return 0, nil
	}
	sat, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sat < 0 {
		return 0, errInvalidAmount
	}
	return btcutil.Amount(sat), nil
}
