// Command fairsharectl administers a fairshare store from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fairshare/internal/bootstrap"
	"fairshare/internal/service"
	"fairshare/internal/storage"
	"fairshare/pkg/config"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "fairsharectl",
	Short:        "Inspect and administer fairshare projects",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")
}

// session is what each subcommand needs: config, a logger and an open store.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Store
	tracker *service.Tracker
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	_ = s.logger.Sync()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := bootstrap.Logger(cfg)
	if !verbose {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &session{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		tracker: service.NewTracker(store, logger, service.WithEvents(cfg.Outbox.Enabled)),
	}, nil
}
