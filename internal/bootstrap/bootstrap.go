// Package bootstrap builds the long-lived dependencies shared by the
// fairshare binaries from a loaded config.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fairshare/internal/storage"
	"fairshare/internal/storage/postgres"
	"fairshare/internal/storage/sqlite"
	"fairshare/pkg/config"
	"fairshare/pkg/db"
	"fairshare/pkg/logger"
)

// LoadConfig loads the config selected by CONFIG_ENV and CONFIG_DIR.
func LoadConfig() (*config.Config, error) {
	env := config.GetConfigEnv()
	cfg, err := config.Load(env, config.GetConfigDir())
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", env, err)
	}
	return cfg, nil
}

// Logger builds the process logger, falling back to zap's production
// defaults if the configured level cannot be used.
func Logger(cfg *config.Config) *zap.Logger {
	l, err := logger.NewLogger(cfg.Log)
	if err != nil {
		l, _ = zap.NewProduction()
		l.Warn("Invalid log config, using production defaults", zap.Error(err))
	}
	return l
}

// OpenStore opens the configured store and applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		log.Info("Opening SQLite store", zap.String("path", cfg.Storage.SQLitePath))
		s, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		pool, err := db.NewConnection(ctx, cfg.DB, cfg.Storage.SlowQueryThreshold, log)
		if err != nil {
			return nil, err
		}
		s, err := postgres.New(ctx, pool, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
