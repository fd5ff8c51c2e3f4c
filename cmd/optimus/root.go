package main

import (
	"context"
	"fmt"

	"github.com/samvad-hq/optimus/internal/app"
	"github.com/samvad-hq/optimus/internal/config"
	"github.com/samvad-hq/optimus/internal/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "optimus",
		Short:         "Optimize images with the Optimus API",
		Long:          "Uploads an image to the Optimus API and saves the optimized, cleaned or WebP-converted result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("api-key", "", "Optimus account key (env OPTIMUS_API_KEY)")
	flags.String("endpoint", "", "API base URL (env OPTIMUS_ENDPOINT)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.String("history", "", "history database path (env HISTORY_PATH)")
	flags.Int64("timeout", 0, "request timeout in seconds, 0 disables (env REQUEST_TIMEOUT_SECONDS)")

	root.AddCommand(newOptimizeCmd(), newHistoryCmd())
	return root
}

// withOptimizer loads config, sets up logging and runs fn against a fresh
// optimizer runtime.
func withOptimizer(cmd *cobra.Command, fn func(ctx context.Context, o *app.Optimizer, cfg *config.Config) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.DebugObj("optimus starting", "config", cfg.Redacted())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	optimizer, err := app.NewOptimizer(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize optimizer", "error", err.Error())
		return err
	}
	defer func() {
		if err := optimizer.Close(); err != nil {
			log.ErrorObj("optimizer close failed", "error", err.Error())
		}
	}()

	return fn(ctx, optimizer, cfg)
}
