// Command sender pays a single BIP21 payjoin URI and reports the outcome.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/metrics"
	observed "github.com/goodnatureofminers/payjoin7000-node/internal/pkg/btcd/rpcclient"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/bitcoind"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/chainsync"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/event"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/service"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/tracker"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/transport"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Network     model.Network `long:"network" env:"PAYJOIN_NETWORK" description:"mainnet, testnet, signet or regtest" required:"true"`
	RPCURL      string        `long:"rpc-url" env:"PAYJOIN_RPC_URL" description:"bitcoind RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser     string        `long:"rpc-user" env:"PAYJOIN_RPC_USER" description:"bitcoind RPC username"`
	RPCPassword string        `long:"rpc-password" env:"PAYJOIN_RPC_PASSWORD" description:"bitcoind RPC password"`
	RPCWallet   string        `long:"rpc-wallet" env:"PAYJOIN_RPC_WALLET" description:"bitcoind wallet name"`
	RelayURL    string        `long:"relay-url" env:"PAYJOIN_RELAY_URL" description:"relay used for the request; empty posts directly"`

	URI               string  `long:"uri" description:"BIP21 URI to pay" required:"true"`
	Amount            int64   `long:"amount" description:"amount in satoshis for URIs without one"`
	MinFeeRate        float64 `long:"min-fee-rate" env:"PAYJOIN_MIN_FEE_RATE" description:"minimum fee rate in sat/vB" default:"1"`
	FundingFeeRate    float64 `long:"funding-fee-rate" env:"PAYJOIN_FUNDING_FEE_RATE" description:"fee rate in sat/vB for the original; 0 lets bitcoind estimate"`
	KeepOutput        bool    `long:"disable-output-substitution" description:"forbid the receiver from changing its output"`
	WaitConfirmations bool    `long:"wait-confirmations" description:"keep running until the payment is buried instead of stopping at broadcast"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	outcome, err := run(ctx, cfg, logger.With(zap.String("network", string(cfg.Network))))
	if err != nil {
		logger.Fatal("payjoin send failed", zap.Error(err))
	}
	fmt.Println(outcome.Kind, outcome.TxID)
	if outcome.Kind == model.EventFailed {
		fmt.Fprintln(os.Stderr, outcome.Reason)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) (model.Event, error) {
	params, err := cfg.Network.Params()
	if err != nil {
		return model.Event{}, err
	}
	var relayURL *url.URL
	if cfg.RelayURL != "" {
		if relayURL, err = url.Parse(cfg.RelayURL); err != nil {
			return model.Event{}, fmt.Errorf("parse relay url: %w", err)
		}
	}

	rpcClient, err := observed.Dial(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword, cfg.RPCWallet)
	if err != nil {
		return model.Event{}, fmt.Errorf("init bitcoind rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := observed.NewObservedClient(rpcClient, metrics.NewRPCClient(cfg.Network))

	queue := event.NewQueue(logger.Named("events"))
	defer queue.Stop()

	follower, err := chainsync.NewFollower(chainsync.FollowerConfig{
		Source:  bitcoind.NewBlockSource(rpc),
		Metrics: metrics.NewChainFollower(cfg.Network),
		Logger:  logger.Named("follower"),
	})
	if err != nil {
		return model.Event{}, err
	}
	payments := tracker.New(follower, queue, metrics.NewTracker(cfg.Network), nil, logger.Named("tracker"))
	follower.AddConfirmer(payments)

	negotiator, err := service.NewNegotiator(service.NegotiatorConfig{
		Wallet:                    bitcoind.NewWallet(rpc, params, cfg.FundingFeeRate, logger.Named("wallet")),
		Broadcaster:               bitcoind.NewBroadcaster(rpc, logger.Named("broadcaster")),
		Relay:                     transport.NewRelayClient(&http.Client{}, metrics.NewHTTP(cfg.Network), logger.Named("relay")),
		Events:                    queue,
		Tracker:                   payments,
		Metrics:                   metrics.NewNegotiator(cfg.Network),
		Params:                    params,
		RelayURL:                  relayURL,
		MinFeeRate:                psbtutil.SatPerVByte(cfg.MinFeeRate),
		DisableOutputSubstitution: cfg.KeepOutput,
		Logger:                    logger.Named("negotiator"),
	})
	if err != nil {
		return model.Event{}, err
	}
	defer func() {
		negotiator.Stop()
		negotiator.Wait()
	}()

	g, gctx := errgroup.WithContext(ctx)
	followCtx, stopFollower := context.WithCancel(gctx)
	g.Go(func() error {
		if err := follower.Run(followCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("chain follower: %w", err)
		}
		return nil
	})

	if err := waitForTip(gctx, payments); err != nil {
		stopFollower()
		_ = g.Wait()
		return model.Event{}, err
	}

	if cfg.Amount > 0 {
		err = negotiator.SendWithAmount(cfg.URI, btcutil.Amount(cfg.Amount))
	} else {
		err = negotiator.Send(cfg.URI)
	}
	if err != nil {
		stopFollower()
		_ = g.Wait()
		return model.Event{}, err
	}

	var outcome model.Event
	g.Go(func() error {
		defer stopFollower()
		for {
			ev, err := queue.Wait(gctx)
			if err != nil {
				return err
			}
			logger.Info("payment update", zap.String("kind", string(ev.Kind)), zap.Stringer("txid", ev.TxID))
			if ev.Kind == model.EventPending && cfg.WaitConfirmations {
				continue
			}
			outcome = ev
			return nil
		}
	})
	if err := g.Wait(); err != nil {
		return model.Event{}, err
	}
	return outcome, nil
}

// waitForTip blocks until the follower has delivered a best block, since the
// tracker refuses transactions before that.
func waitForTip(ctx context.Context, payments *tracker.Tracker) error {
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for payments.BestBlock().IsNone() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		}
	}
	return nil
}
