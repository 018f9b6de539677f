// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atxeats/harvester/internal/config"
	"github.com/atxeats/harvester/internal/logging"
	"github.com/atxeats/harvester/internal/metrics"
)

var cfgFile string

// runtimeKeyType is the key for storing the Runtime in the command context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// Runtime carries the services shared by every subcommand.
type Runtime struct {
	Cfg     config.Config
	Logger  *zap.Logger
	metrics *metrics.Server
}

// Close shuts down shared services.
func (r *Runtime) Close(ctx context.Context) {
	if r.metrics != nil {
		if err := r.metrics.Shutdown(ctx); err != nil {
			r.Logger.Warn("metrics shutdown failed", zap.Error(err))
		}
	}
	_ = r.Logger.Sync()
}

// newRuntime is a variable so tests can swap in a stub factory.
var newRuntime = func(_ context.Context) (*Runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &Runtime{Cfg: cfg, Logger: logger}
	if cfg.Metrics.Addr != "" {
		rt.metrics = metrics.NewServer(cfg.Metrics.Addr, logger)
		rt.metrics.Start()
	}
	return rt, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Geographically partitioned business-listing harvester",
		Long: `harvester builds a canonical table of local businesses by crawling a
directory API over an adaptive spatial grid, enriching each business with
detail attributes, and collecting review text from the comments source with a
headless browser. Runs are checkpointed and safe to interrupt and resume.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*Runtime); ok && rt != nil {
				rt.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus HARVESTER_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newReviewsCmd())
	cmd.AddCommand(newParseCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("services not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
