package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	service "github.com/aviorian/monad-mindshare/internal"
	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "mindshare",
	Short: "Monad mindshare leaderboard and batch tip service",
	Long: `mindshare ranks Farcaster authors by engagement on Monad related casts and
sends batch MON tips to the authors an operator selects.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop and the operator HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, leaderboardCmd, eventsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := service.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to build service", zap.Error(err))
		return err
	}
	if err := app.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
		logger.Error("service exited with error", zap.Error(err))
		return err
	}
	logger.Info("service stopped")
	return nil
}
