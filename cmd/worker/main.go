package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fairshare/internal/bootstrap"
	"fairshare/pkg/circuitbreaker"
	"fairshare/pkg/mq"
	"fairshare/pkg/otel"
	"fairshare/pkg/outbox"

	"go.uber.org/zap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := bootstrap.Logger(cfg)
	defer logger.Sync()

	logger.Info("Starting fairshare outbox worker...",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("exchange", cfg.MQ.Exchange),
		zap.Duration("interval", cfg.Outbox.Interval),
	)

	if !cfg.Outbox.Enabled || !cfg.MQ.Enabled {
		logger.Fatal("Outbox worker requires outbox.enabled and mq.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Otel, logger)
	if err != nil {
		logger.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		logger.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()
	logger.Info("Publisher connected", zap.String("exchange", cfg.MQ.Exchange))

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Publisher circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	dispatcher := outbox.NewDispatcher(store.Outbox(), publisher, logger).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithBreaker(circuitbreaker.NewCircuitBreaker(breakerCfg))

	logger.Info("Outbox dispatcher started")
	// Start 在 ctx 取消前阻塞
	dispatcher.Start(ctx)

	logger.Info("fairshare outbox worker shutdown complete")
}
