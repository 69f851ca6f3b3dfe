package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rainfall-insurance-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-insurance-service/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-insurance-service/internal/adapter/ledger"
	mqttadapter "github.com/couchcryptid/rainfall-insurance-service/internal/adapter/mqtt"
	"github.com/couchcryptid/rainfall-insurance-service/internal/adapter/notify"
	"github.com/couchcryptid/rainfall-insurance-service/internal/adapter/openweather"
	"github.com/couchcryptid/rainfall-insurance-service/internal/config"
	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/couchcryptid/rainfall-insurance-service/internal/engine"
	"github.com/couchcryptid/rainfall-insurance-service/internal/observability"
	"github.com/couchcryptid/rainfall-insurance-service/internal/store"
	"github.com/couchcryptid/rainfall-insurance-service/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer

	policyStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open policy store", "error", err)
		os.Exit(1)
	}
	if c, ok := policyStore.(io.Closer); ok {
		closers = append(closers, c)
	}

	sink, sinkClosers, err := buildSink(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize notification sinks", "error", err)
		os.Exit(1)
	}
	closers = append(closers, sinkClosers...)

	source := openweather.NewBreakerSource(
		openweather.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, logger),
		cfg.BreakerFailures,
		cfg.BreakerOpenTimeout,
		logger,
	)
	vault := ledger.NewVault(map[string]uint64{cfg.VaultAccount: cfg.VaultBalance}, logger)
	logger.Info("vault funded", "account", cfg.VaultAccount, "balance", cfg.VaultBalance)

	eng := engine.New(policyStore, source, vault, cfg.VaultAccount, sink, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func openStore(cfg *config.Config, logger *slog.Logger) (domain.PolicyStore, error) {
	if cfg.StoreBackend == config.StoreSQLite {
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("policy store: sqlite", "path", cfg.SQLitePath)
		return s, nil
	}
	logger.Info("policy store: memory")
	return store.NewMemory(), nil
}

func buildSink(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.NotificationSink, []io.Closer, error) {
	var (
		sinks   notify.Fanout
		closers []io.Closer
	)
	if cfg.NotifyEnabled(config.NotifyLog) {
		sinks = append(sinks, notify.NewLogSink(logger, metrics))
	}
	if cfg.NotifyEnabled(config.NotifyKafka) {
		k := kafkaadapter.NewSink(cfg, logger, metrics)
		sinks = append(sinks, k)
		closers = append(closers, k)
		logger.Info("kafka notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	}
	if cfg.NotifyEnabled(config.NotifyMQTT) {
		client, err := mqttadapter.Connect(ctx, cfg, logger)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		m := mqttadapter.NewSink(client, cfg.MQTTTopic, logger, metrics)
		sinks = append(sinks, m)
		closers = append(closers, m)
		logger.Info("mqtt notifications enabled", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}
	return sinks, closers, nil
}
