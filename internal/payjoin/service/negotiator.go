package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/send"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/uri"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"go.uber.org/zap"
)

var (
	ErrMissingAmount  = errors.New("no amount given and none in the payment uri")
	ErrInvalidNetwork = errors.New("payment uri is for another network")
	ErrStopped        = errors.New("negotiator stopped")
)

// NegotiatorConfig wires a Negotiator. RelayURL may be nil to post straight
// to the receiver endpoint.
type NegotiatorConfig struct {
	Wallet      Wallet
	Broadcaster Broadcaster
	Relay       RelayClient
	Events      EventQueue
	Tracker     PaymentTracker
	Metrics     NegotiatorMetrics

	Params                    *chaincfg.Params
	RelayURL                  *url.URL
	MinFeeRate                btcutil.Amount
	DisableOutputSubstitution bool

	Clock  clock.Clock
	Logger *zap.Logger
}

// Negotiator runs one background negotiation per Send. Outcomes are only
// reported through the event queue.
type Negotiator struct {
	cfg NegotiatorConfig

	newTicker     func(time.Duration) ticker.Ticker
	totalDuration time.Duration
	retryInterval time.Duration
	timeout       time.Duration

	gm     *fn.GoroutineManager
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewNegotiator(cfg NegotiatorConfig) (*Negotiator, error) {
	switch {
	case cfg.Wallet == nil:
		return nil, errors.New("negotiator wallet is required")
	case cfg.Broadcaster == nil:
		return nil, errors.New("negotiator broadcaster is required")
	case cfg.Relay == nil:
		return nil, errors.New("negotiator relay client is required")
	case cfg.Events == nil:
		return nil, errors.New("negotiator event queue is required")
	case cfg.Tracker == nil:
		return nil, errors.New("negotiator tracker is required")
	case cfg.Metrics == nil:
		return nil, errors.New("negotiator metrics is required")
	case cfg.Params == nil:
		return nil, errors.New("negotiator chain params are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Negotiator{
		cfg:           cfg,
		newTicker:     func(d time.Duration) ticker.Ticker { return ticker.New(d) },
		totalDuration: requestTotalDuration,
		retryInterval: retryInterval,
		timeout:       requestTimeout,
		gm:            fn.NewGoroutineManager(),
		logger:        cfg.Logger,
	}, nil
}

// Send pays the amount embedded in rawURI.
func (n *Negotiator) Send(rawURI string) error {
	return n.send(rawURI, fn.None[btcutil.Amount]())
}

// SendWithAmount pays amount, which takes precedence over the uri amount.
func (n *Negotiator) SendWithAmount(rawURI string, amount btcutil.Amount) error {
	return n.send(rawURI, fn.Some(amount))
}

// Wait blocks until every started negotiation has finished.
func (n *Negotiator) Wait() {
	n.wg.Wait()
}

// Stop cancels running negotiations; each reports a failure.
func (n *Negotiator) Stop() {
	n.gm.Stop()
}

type negotiation struct {
	uri      uri.URI
	amount   btcutil.Amount
	original *psbt.Packet
	request  *send.RequestContext
	deadline <-chan time.Time
	started  time.Time
	logger   *zap.Logger
}

func (n *Negotiator) send(rawURI string, explicit fn.Option[btcutil.Amount]) error {
	u, err := uri.Parse(rawURI, n.cfg.Params)
	if err != nil {
		if errors.Is(err, uri.ErrWrongNetwork) {
			return fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
		}
		return err
	}
	if err := u.RequirePayjoin(); err != nil {
		return err
	}
	amount, err := explicit.Alt(u.Amount).UnwrapOrErr(ErrMissingAmount)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", ErrMissingAmount, amount)
	}

	script, err := txscript.PayToAddrScript(u.Address)
	if err != nil {
		return fmt.Errorf("payee script: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	original, err := n.cfg.Wallet.BuildPayjoinTransaction(ctx, script, amount)
	cancel()
	if err != nil {
		return fmt.Errorf("build original: %w", err)
	}

	builder, err := send.NewRequestBuilder(original, u)
	if err != nil {
		return err
	}
	request, err := builder.
		AlwaysDisableOutputSubstitution(n.cfg.DisableOutputSubstitution).
		BuildNonIncentivizing(n.cfg.MinFeeRate)
	if err != nil {
		return err
	}

	neg := &negotiation{
		uri:      u,
		amount:   amount,
		original: original,
		request:  request,
		deadline: n.cfg.Clock.TickAfter(n.totalDuration),
		started:  n.cfg.Clock.Now(),
		logger: n.logger.With(
			zap.Stringer("original", original.UnsignedTx.TxHash()),
			zap.String("receiver", u.Address.String()),
			zap.Int64("amount", int64(amount)),
		),
	}

	n.wg.Add(1)
	ok := n.gm.Go(context.Background(), func(ctx context.Context) {
		defer n.wg.Done()
		n.negotiate(ctx, neg)
	})
	if !ok {
		n.wg.Done()
		return ErrStopped
	}
	neg.logger.Info("payjoin negotiation started")
	return nil
}

func (n *Negotiator) negotiate(ctx context.Context, neg *negotiation) {
	tick := n.newTicker(n.retryInterval)
	tick.Resume()
	defer tick.Stop()

	// The first request goes out at once; later ones wait for a tick.
	if n.poll(ctx, neg) {
		return
	}
	for {
		select {
		case <-neg.deadline:
			n.fail(neg, neg.original.UnsignedTx.TxHash(), reasonTimedOut, outcomeTimedOut)
			return

		case <-ctx.Done():
			n.fail(neg, neg.original.UnsignedTx.TxHash(), ErrStopped.Error(), outcomeStopped)
			return

		case <-tick.Ticks():
			if n.poll(ctx, neg) {
				return
			}
		}
	}
}

// poll runs one attempt and reports whether the negotiation has ended.
func (n *Negotiator) poll(ctx context.Context, neg *negotiation) bool {
	proposal, err := n.attempt(ctx, neg)
	if err != nil {
		n.fail(neg, neg.original.UnsignedTx.TxHash(), err.Error(), outcomeFailed)
		return true
	}
	if proposal == nil {
		return false
	}
	n.finalize(ctx, neg, proposal)
	return true
}

// attempt posts one freshly extracted request. A nil proposal with a nil
// error means try again on the next tick; error statuses are retried and only
// an invalid proposal is returned as an error.
func (n *Negotiator) attempt(ctx context.Context, neg *negotiation) (*psbt.Packet, error) {
	req, respCtx, err := neg.request.Extract(n.cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("extract request: %w", err)
	}

	postCtx, cancel := context.WithTimeout(ctx, n.timeout)
	body, err := n.cfg.Relay.Post(postCtx, req)
	cancel()
	if err != nil {
		n.cfg.Metrics.ObserveAttempt(outcomeTransportError)
		neg.logger.Warn("payjoin request failed; retrying", zap.Error(err))
		return nil, nil
	}

	proposal, err := respCtx.ProcessResponse(body)
	switch {
	case errors.Is(err, send.ErrReceiverRejected):
		n.cfg.Metrics.ObserveAttempt(outcomeRejected)
		neg.logger.Warn("payjoin endpoint returned an error; retrying", zap.Error(err))
		return nil, nil
	case err != nil:
		n.cfg.Metrics.ObserveAttempt(outcomeInvalid)
		return nil, err
	case proposal == nil:
		n.cfg.Metrics.ObserveAttempt(outcomeEmpty)
		neg.logger.Debug("no proposal yet")
		return nil, nil
	}
	n.cfg.Metrics.ObserveAttempt(outcomeProposal)
	return proposal, nil
}

// finalize signs, registers and broadcasts the checked proposal.
func (n *Negotiator) finalize(ctx context.Context, neg *negotiation, proposal *psbt.Packet) {
	originalTxID := neg.original.UnsignedTx.TxHash()

	restored := send.ReattachOriginalInputs(proposal, neg.original)
	neg.logger.Debug("reattached original inputs", zap.Int("inputs", restored))

	signCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	complete, err := n.cfg.Wallet.SignTransaction(signCtx, proposal)
	if err != nil {
		n.fail(neg, originalTxID, fmt.Sprintf("sign proposal: %v", err), outcomeFailed)
		return
	}
	if !complete {
		n.fail(neg, originalTxID, "sign proposal: packet incomplete", outcomeFailed)
		return
	}

	tx, err := psbt.Extract(proposal)
	if err != nil {
		n.fail(neg, originalTxID, fmt.Sprintf("extract proposal: %v", err), outcomeFailed)
		return
	}
	txid := tx.TxHash()

	isMine := func(script []byte) (bool, error) {
		return n.cfg.Wallet.IsMine(signCtx, script)
	}
	if err := n.cfg.Tracker.Track(tx, neg.uri.Address, neg.amount, isMine); err != nil {
		n.fail(neg, txid, fmt.Sprintf("track payjoin: %v", err), outcomeFailed)
		return
	}
	if err := n.cfg.Broadcaster.Broadcast(signCtx, tx); err != nil {
		n.cfg.Tracker.Forget(txid)
		n.fail(neg, txid, fmt.Sprintf("broadcast payjoin: %v", err), outcomeFailed)
		return
	}

	n.emit(neg, model.PendingEvent(txid, neg.amount, neg.uri.Address.String(), n.cfg.Clock.Now()))
	n.cfg.Metrics.ObserveNegotiation(outcomePending, neg.started)
	neg.logger.Info("payjoin broadcast", zap.Stringer("txid", txid))
}

func (n *Negotiator) fail(neg *negotiation, txid chainhash.Hash, reason, outcome string) {
	neg.logger.Warn("payjoin negotiation failed", zap.String("reason", reason))
	n.emit(neg, model.FailedEvent(txid, neg.amount, neg.uri.Address.String(), reason, n.cfg.Clock.Now()))
	n.cfg.Metrics.ObserveNegotiation(outcome, neg.started)
}

func (n *Negotiator) emit(neg *negotiation, event model.Event) {
	if err := n.cfg.Events.Add(event); err != nil {
		neg.logger.Error("queue payment event failed", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}
