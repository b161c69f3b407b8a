package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"gobetrelay/EVMRPC"
	"gobetrelay/addressmap"
	"gobetrelay/bridge"
	"gobetrelay/config"
	"gobetrelay/estimator"
	"gobetrelay/markets"
	"gobetrelay/metrics"
	"gobetrelay/redis"
	"gobetrelay/relayer"
	"gobetrelay/signature"
	"gobetrelay/types"
	"gobetrelay/workers"
	"gobetrelay/workers/handlers"
)

func newLogger(level string) (*zap.Logger, error) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, err
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.OutputPaths = []string{"stderr", fmt.Sprintf("logs/relay_%s.log", time.Now().Format("2006-01-02"))}
	return zc.Build()
}

func main() {
	config.Init()
	cfg := &config.Config

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("error creating logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting universal bet relay",
		zap.String("destination", cfg.Relay.DestinationChain),
		zap.String("contract", cfg.Relay.ContractAddress))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// without the activity log there is no replay protection, do not continue
	store := redis.NewStore(redis.Addr(cfg), logger.Named("redis"))
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("cannot reach redis", zap.Error(err))
	}

	registry := config.NewRegistry(cfg.Relay.DestinationChain, cfg.Chains)
	dest, err := registry.Lookup(cfg.Relay.DestinationChain)
	if err != nil {
		logger.Fatal("bad destination chain", zap.Error(err))
	}

	destClient := EVMRPC.NewClient(dest, logger.Named("rpc"))
	defer destClient.Close()

	// origin chains the bridge verifier reads payments from
	originClients := make(map[string]bridge.Chain)
	for _, c := range registry.List() {
		if c.Native || c.Family != types.FamilyEVM || c.Gateway == "" || len(c.RPCList) == 0 {
			continue
		}
		client := EVMRPC.NewClient(c, logger.Named("rpc"))
		defer client.Close()
		originClients[c.Namespace] = client
	}

	account, err := relayer.NewAccount(cfg.Relay.PrivateKey, destClient.ChainID())
	if err != nil {
		logger.Fatal("bad relay private key", zap.Error(err))
	}
	logger.Info("relay account loaded", zap.String("address", account.Address().Hex()))

	est, err := estimator.NewEstimator(registry, dest.Namespace, cfg.Fees.BridgeFeeBps, cfg.Fees.NativeFee)
	if err != nil {
		logger.Fatal("bad fee configuration", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	verifier := signature.NewVerifier(logger.Named("signature"))
	mapper := addressmap.NewMapper(dest.Namespace)
	book := markets.NewBook(destClient, common.HexToAddress(cfg.Relay.ContractAddress), dest.Decimals, m, logger.Named("markets"))
	bridgeVerifier := bridge.NewVerifier(registry, originClients, logger.Named("bridge"))

	relay := relayer.New(relayer.OptionsFromConfig(cfg), relayer.Deps{
		Backend:   destClient,
		Account:   account,
		Registry:  registry,
		Verifier:  verifier,
		Mapper:    mapper,
		Estimator: est,
		Markets:   book,
		Bridge:    bridgeVerifier,
		Activity:  store,
		Metrics:   m,
		Logger:    logger.Named("relayer"),
	})

	api := &handlers.API{
		Relayer:      relay,
		Verifier:     verifier,
		Mapper:       mapper,
		Estimator:    est,
		Registry:     registry,
		Bridge:       bridgeVerifier,
		Store:        store,
		Chain:        destClient,
		Markets:      book,
		RelayAddress: account.Address(),
		Logger:       logger.Named("http"),
	}

	// there are 3 worker threads:
	// * keep the market book in sync with the contract
	// * follow up relays that timed out waiting for a receipt
	// * API serving HTTP server (serves as main worker thread)
	go workers.Worker_syncMarkets(ctx, book, cfg.Workers.MarketSyncInterval, logger.Named("markets"))
	go workers.Worker_processPending(ctx, store, destClient, cfg.Workers.PendingCheckInterval, cfg.Workers.PendingGiveUp, logger.Named("pending"))

	if err := workers.Worker_HTTP(ctx, workers.NewRouter(api, cfg, prometheus.DefaultGatherer), cfg, logger.Named("http")); err != nil {
		logger.Fatal("HTTP service failed", zap.Error(err))
	}
}
