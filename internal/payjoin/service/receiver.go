package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/uri"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

// ReceiverConfig wires a Receiver.
type ReceiverConfig struct {
	Wallet      Wallet
	Broadcaster Broadcaster
	Seen        SeenInputs
	Metrics     ReceiverMetrics

	// Endpoint is advertised as pj= in issued payment URIs.
	Endpoint   *url.URL
	MinFeeRate btcutil.Amount
	// SubstituteOutput moves the payment to a fresh address when the
	// sender allows it.
	SubstituteOutput bool
	Policy           receive.InputSelectionPolicy

	Logger *zap.Logger
}

// Receiver issues payment URIs and answers payjoin requests.
type Receiver struct {
	cfg    ReceiverConfig
	logger *zap.Logger
}

func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	switch {
	case cfg.Wallet == nil:
		return nil, errors.New("receiver wallet is required")
	case cfg.Broadcaster == nil:
		return nil, errors.New("receiver broadcaster is required")
	case cfg.Seen == nil:
		return nil, errors.New("receiver seen inputs store is required")
	case cfg.Metrics == nil:
		return nil, errors.New("receiver metrics is required")
	case cfg.Endpoint == nil:
		return nil, errors.New("receiver endpoint is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = receive.UIHAvoidingPolicy{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Receiver{cfg: cfg, logger: cfg.Logger}, nil
}

// Receive issues a payment URI on a fresh address. A zero amount leaves the
// amount to the sender.
func (r *Receiver) Receive(ctx context.Context, amount btcutil.Amount) (uri.URI, error) {
	addr, err := r.cfg.Wallet.NewAddress(ctx)
	if err != nil {
		return uri.URI{}, fmt.Errorf("new address: %w", err)
	}
	amt := fn.None[btcutil.Amount]()
	if amount > 0 {
		amt = fn.Some(amount)
	}
	endpoint := *r.cfg.Endpoint
	u := uri.New(addr, amt, &endpoint)
	r.logger.Info("payment uri issued", zap.String("address", addr.String()), zap.Int64("amount", int64(amount)))
	return u, nil
}

// HandleRequest turns one original into a signed proposal. Any failure is
// returned as a *receive.Error whose public body hides the cause.
func (r *Receiver) HandleRequest(ctx context.Context, body []byte, rawQuery string, header http.Header) ([]byte, error) {
	started := time.Now()
	stage := receive.StageUnchecked

	pl := receive.Pipeline{
		Checks: receive.Checks{
			MinFeeRate: r.cfg.MinFeeRate,
			CanBroadcast: func(tx *wire.MsgTx) (bool, error) {
				return r.cfg.Broadcaster.CanBroadcast(ctx, tx)
			},
			IsOwned: func(script []byte) (bool, error) {
				return r.cfg.Wallet.IsMine(ctx, script)
			},
			IsKnown: func(outpoint wire.OutPoint) (bool, error) {
				return r.cfg.Seen.Contains(ctx, outpoint)
			},
			IsReceiverOutput: func(script []byte) (bool, error) {
				return r.cfg.Wallet.IsMine(ctx, script)
			},
		},
		Candidates: func() ([]receive.Candidate, error) {
			return r.cfg.Wallet.ListUnspent(ctx)
		},
		Policy: r.cfg.Policy,
		Remember: func(outpoints []wire.OutPoint) error {
			return r.cfg.Seen.Remember(ctx, outpoints)
		},
		Sign: func(proposal, original *psbt.Packet) error {
			return r.cfg.Wallet.SignPayjoinProposal(ctx, proposal, original)
		},
		OnStage: func(s receive.Stage) { stage = s },
		Logger:  r.logger,
	}
	if r.cfg.SubstituteOutput {
		pl.Substitute = r.freshScript(ctx)
	}

	proposal, err := pl.Process(body, rawQuery, header)
	if err != nil {
		pjErr := receive.AsError(err)
		r.cfg.Metrics.ObserveRequest(string(pjErr.Code), stage, started)
		r.logger.Warn("payjoin request rejected",
			zap.String("code", string(pjErr.Code)),
			zap.Stringer("stage", stage),
			zap.Error(err),
		)
		return nil, pjErr
	}

	b64, err := proposal.Base64()
	if err != nil {
		pjErr := receive.AsError(fmt.Errorf("encode proposal: %w", err))
		r.cfg.Metrics.ObserveRequest(string(pjErr.Code), stage, started)
		return nil, pjErr
	}
	r.cfg.Metrics.ObserveRequest("ok", stage, started)
	r.logger.Info("payjoin proposal returned",
		zap.Int("inputs", len(proposal.Psbt().UnsignedTx.TxIn)),
		zap.Int("locked", len(proposal.LockedInputs())),
	)
	return []byte(b64), nil
}

func (r *Receiver) freshScript(ctx context.Context) func([]byte) (fn.Option[[]byte], error) {
	return func([]byte) (fn.Option[[]byte], error) {
		addr, err := r.cfg.Wallet.NewAddress(ctx)
		if err != nil {
			return fn.None[[]byte](), err
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return fn.None[[]byte](), err
		}
		return fn.Some(script), nil
	}
}
