// Command node runs a payjoin receiver endpoint next to a sender, both
// backed by one bitcoind wallet.
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

	"github.com/goodnatureofminers/payjoin7000-node/internal/metrics"
	observed "github.com/goodnatureofminers/payjoin7000-node/internal/pkg/btcd/rpcclient"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/bitcoind"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/chainsync"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/event"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/history"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/repository/clickhouse"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/seen"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/service"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/tracker"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/transport"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Network     model.Network `long:"network" env:"PAYJOIN_NETWORK" description:"mainnet, testnet, signet or regtest" required:"true"`
	RPCURL      string        `long:"rpc-url" env:"PAYJOIN_RPC_URL" description:"bitcoind RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser     string        `long:"rpc-user" env:"PAYJOIN_RPC_USER" description:"bitcoind RPC username"`
	RPCPassword string        `long:"rpc-password" env:"PAYJOIN_RPC_PASSWORD" description:"bitcoind RPC password"`
	RPCWallet   string        `long:"rpc-wallet" env:"PAYJOIN_RPC_WALLET" description:"bitcoind wallet name"`

	ListenAddr string `long:"listen-addr" env:"PAYJOIN_LISTEN_ADDR" description:"address of the public pj endpoint" default:":8080"`
	Endpoint   string `long:"endpoint" env:"PAYJOIN_ENDPOINT" description:"public URL advertised as pj= in payment URIs" required:"true"`
	AdminAddr  string `long:"admin-addr" env:"PAYJOIN_ADMIN_ADDR" description:"address for metrics and the operator API" default:"127.0.0.1:2112"`
	RelayURL   string `long:"relay-url" env:"PAYJOIN_RELAY_URL" description:"relay used for outgoing requests; empty posts directly"`
	ZMQAddr    string `long:"zmq-addr" env:"PAYJOIN_ZMQ_ADDR" description:"bitcoind zmqpubhashblock address (zmq builds only)"`

	MinFeeRate       float64 `long:"min-fee-rate" env:"PAYJOIN_MIN_FEE_RATE" description:"minimum fee rate in sat/vB" default:"1"`
	FundingFeeRate   float64 `long:"funding-fee-rate" env:"PAYJOIN_FUNDING_FEE_RATE" description:"fee rate in sat/vB for originals; 0 lets bitcoind estimate"`
	SubstituteOutput bool    `long:"substitute-output" env:"PAYJOIN_SUBSTITUTE_OUTPUT" description:"move incoming payments to a fresh address when allowed"`
	StartHeight      int64   `long:"start-height" env:"PAYJOIN_START_HEIGHT" description:"first block to scan; negative starts at the tip" default:"-1"`

	ClickhouseDSN        string        `long:"clickhouse-dsn" env:"PAYJOIN_CLICKHOUSE_DSN" description:"ClickHouse DSN; empty keeps state in memory"`
	HistoryFlushSize     int           `long:"history-flush-size" env:"PAYJOIN_HISTORY_FLUSH_SIZE" description:"payment events per history batch" default:"100"`
	HistoryFlushInterval time.Duration `long:"history-flush-interval" env:"PAYJOIN_HISTORY_FLUSH_INTERVAL" description:"maximum delay before a history batch is written" default:"5s"`
	HistoryRPS           int           `long:"history-rps" env:"PAYJOIN_HISTORY_RPS" description:"history writes per second" default:"10"`
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

	if err := run(ctx, cfg, logger.With(zap.String("network", string(cfg.Network)))); err != nil {
		logger.Fatal("payjoin node failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	params, err := cfg.Network.Params()
	if err != nil {
		return err
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	var relayURL *url.URL
	if cfg.RelayURL != "" {
		if relayURL, err = url.Parse(cfg.RelayURL); err != nil {
			return fmt.Errorf("parse relay url: %w", err)
		}
	}

	rpcClient, err := observed.Dial(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword, cfg.RPCWallet)
	if err != nil {
		return fmt.Errorf("init bitcoind rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := observed.NewObservedClient(rpcClient, metrics.NewRPCClient(cfg.Network))
	wallet := bitcoind.NewWallet(rpc, params, cfg.FundingFeeRate, logger.Named("wallet"))
	broadcaster := bitcoind.NewBroadcaster(rpc, logger.Named("broadcaster"))

	sinks := []event.Sink{metrics.NewEvents(cfg.Network)}
	var seenInputs service.SeenInputs = seen.NewMemory()
	var recorder *history.Recorder
	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close repository failed", zap.Error(err))
			}
		}()
		seenInputs = seen.NewStore(repo, cfg.Network, logger.Named("seen"))
		recorder = history.NewRecorder(repo, cfg.Network, logger.Named("recorder"),
			cfg.HistoryFlushSize, cfg.HistoryFlushInterval, cfg.HistoryRPS)
		sinks = append(sinks, recorder)
	}
	queue := event.NewQueue(logger.Named("events"), sinks...)

	blockSignal, err := chainsync.StartBlockSignal(ctx, cfg.ZMQAddr, logger.Named("zmq"))
	if err != nil {
		return err
	}
	startHeight := fn.None[uint32]()
	if cfg.StartHeight >= 0 {
		startHeight = fn.Some(uint32(cfg.StartHeight))
	}
	follower, err := chainsync.NewFollower(chainsync.FollowerConfig{
		Source:      bitcoind.NewBlockSource(rpc),
		Metrics:     metrics.NewChainFollower(cfg.Network),
		Logger:      logger.Named("follower"),
		BlockSignal: blockSignal,
		StartHeight: startHeight,
	})
	if err != nil {
		return err
	}
	payments := tracker.New(follower, queue, metrics.NewTracker(cfg.Network), nil, logger.Named("tracker"))
	follower.AddConfirmer(payments)

	httpMetrics := metrics.NewHTTP(cfg.Network)
	negotiator, err := service.NewNegotiator(service.NegotiatorConfig{
		Wallet:      wallet,
		Broadcaster: broadcaster,
		Relay:       transport.NewRelayClient(&http.Client{}, httpMetrics, logger.Named("relay")),
		Events:      queue,
		Tracker:     payments,
		Metrics:     metrics.NewNegotiator(cfg.Network),
		Params:      params,
		RelayURL:    relayURL,
		MinFeeRate:  psbtutil.SatPerVByte(cfg.MinFeeRate),
		Logger:      logger.Named("negotiator"),
	})
	if err != nil {
		return err
	}
	receiver, err := service.NewReceiver(service.ReceiverConfig{
		Wallet:           wallet,
		Broadcaster:      broadcaster,
		Seen:             seenInputs,
		Metrics:          metrics.NewReceiver(cfg.Network),
		Endpoint:         endpoint,
		MinFeeRate:       psbtutil.SatPerVByte(cfg.MinFeeRate),
		SubstituteOutput: cfg.SubstituteOutput,
		Logger:           logger.Named("receiver"),
	})
	if err != nil {
		return err
	}

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.Handle("/", transport.NewAdminHandler(receiver, negotiator, httpMetrics, logger.Named("admin")))
	servers := []*http.Server{
		newServer(cfg.ListenAddr, transport.NewReceiverHandler(receiver, httpMetrics, logger.Named("endpoint"))),
		newServer(cfg.AdminAddr, adminMux),
	}

	if recorder != nil {
		recorder.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("starting http server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := follower.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("chain follower: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Outcomes are reported through the sinks; the queue only needs
		// draining.
		for {
			if _, err := queue.Wait(gctx); err != nil {
				return nil
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown http server", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		negotiator.Stop()
		negotiator.Wait()
		if recorder != nil {
			recorder.Stop()
		}
		queue.Stop()
		return nil
	})
	return g.Wait()
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
}
