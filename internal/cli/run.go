package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/config"
	"github.com/marmos91/tokenmig/pkg/metrics"
	"github.com/marmos91/tokenmig/pkg/migration"
	"github.com/marmos91/tokenmig/pkg/progress"
	"github.com/spf13/cobra"
)

var (
	runTokens  []string
	runReverse bool
)

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Migrate files into their space token directories",
	Long: `Migrate every file of the selected space tokens.

Forward runs move <source>/<rel> to <destination>/<token>/<rel>; reverse
runs move them back. Files that cannot be migrated are logged and left in
place. The command exits non-zero when the run is aborted or the catalog
fails part way; per-file failures only show up in the summary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigration,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runTokens, "tokens", "t", nil, "Only migrate these tokens (comma separated, overrides the config)")
	runCmd.Flags().BoolVar(&runReverse, "reverse", false, "Move files back from the token tree to the source tree")
}

func runMigration(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args, func(cfg *config.Config) {
		if cmd.Flags().Changed("tokens") {
			cfg.Migration.Tokens = runTokens
		}
		if runReverse {
			cfg.Migration.Direction = migration.Reverse.String()
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engineCfg, err := cfg.Migration.EngineConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		defer serveMetrics(ctx, m.Server)()
	}

	store, err := config.CreateNamespaceStore(ctx, &cfg.Namespace)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close namespace store: %v", err)
		}
	}()
	if err := store.Healthcheck(ctx); err != nil {
		return fmt.Errorf("namespace store is not usable: %w", err)
	}

	cat, err := config.CreateCatalog(ctx, &cfg.Catalog)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Warn("Failed to close catalog: %v", err)
		}
	}()

	out := cmd.OutOrStdout()
	engine, err := migration.NewEngine(
		metrics.InstrumentStore(store, m.Store),
		cat,
		engineCfg,
		migration.WithProgress(progress.NewReporter(out)),
		migration.WithMetrics(m.Migration),
	)
	if err != nil {
		return err
	}

	summary, runErr := engine.Run(ctx, cfg.Migration.Selection())
	if summary != nil && len(summary.Tokens) > 0 {
		printSummary(out, summary)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("migration interrupted")
		}
		return fmt.Errorf("migration failed: %w", runErr)
	}
	return nil
}

// serveMetrics runs server in the background and returns a function that
// stops it and waits for the shutdown to finish.
func serveMetrics(ctx context.Context, server *metrics.Server) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ctx); err != nil {
			logger.Error("Metrics server error: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
