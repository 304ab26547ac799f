package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fairshare/internal/bootstrap"
	"fairshare/internal/handler"
	"fairshare/internal/httpserver"
	"fairshare/internal/service"
	"fairshare/pkg/idempotency"
	"fairshare/pkg/otel"
	redisclient "fairshare/pkg/redis"

	"go.uber.org/zap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := bootstrap.Logger(cfg)
	defer logger.Sync()

	logger.Info("Starting fairshare server...",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("port", cfg.Server.Port),
		zap.Bool("outbox_enabled", cfg.Outbox.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	ctx := context.Background()

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
	logger.Info("Store opened successfully")

	var guard *idempotency.Guard
	if cfg.Redis.Enabled {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			// 幂等保护是可选的，Redis 不可用时照常提供服务
			logger.Warn("Redis unavailable, Idempotency-Key support disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			guard = idempotency.NewGuard(rdb, cfg.Redis.IdempotencyTTL, logger)
		}
	}

	tracker := service.NewTracker(store, logger, service.WithEvents(cfg.Outbox.Enabled))

	router := httpserver.NewRouter(
		handler.NewProjectHandler(tracker, guard, logger),
		handler.NewModuleHandler(tracker, guard, logger),
		tracker,
		logger,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down fairshare server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped")
	}

	logger.Info("fairshare server shutdown complete")
}
