// Package main is the whale index command-line tool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whale-index-lab/internal/app"
	"whale-index-lab/internal/config"
	"whale-index-lab/internal/ingestion"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/pipeline"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	engineConfig string
	useFixtures  bool
	fixtureDays  int
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "whalectl",
		Short:         "Whale Activity and Intent index tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.engineConfig, "engine-config", "", "YAML file overriding engine parameters (default: ENGINE_CONFIG)")
	root.PersistentFlags().BoolVar(&flags.useFixtures, "use-fixtures", false, "Use seeded synthetic data instead of the upstream feed")
	root.PersistentFlags().IntVar(&flags.fixtureDays, "fixture-days", 0, "Days of synthetic data (default: FEED_FIXTURE_DAYS)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (default: LOG_LEVEL)")

	root.AddCommand(
		ingestCmd(flags),
		reportCmd(flags),
		backtestCmd(flags),
		verifyCmd(flags),
		configCmd(flags),
	)
	return root
}

// env is the assembled runtime for one command.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	stores  *app.Stores
	engine  *pipeline.Pipeline
	manager *ingestion.Manager
	cleanup func()
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if flags.engineConfig != "" {
		cfg.Engine.ConfigPath = flags.engineConfig
	}
	if flags.useFixtures {
		cfg.Feed.UseFixtures = true
	}
	if flags.fixtureDays > 0 {
		cfg.Feed.FixtureDays = flags.fixtureDays
	}
	if flags.logLevel != "" {
		cfg.App.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(ctx context.Context, flags *globalFlags) (*env, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get().Named("whalectl")

	engine, err := app.NewEngine(cfg.Engine.ConfigPath, log)
	if err != nil {
		return nil, err
	}
	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:   app.NewSource(cfg.Feed, log),
		Store:    stores.Metrics,
		Progress: stores.Progress,
		Logger:   log,
	})
	return &env{
		cfg:     cfg,
		log:     log,
		stores:  stores,
		engine:  engine,
		manager: manager,
		cleanup: func() {
			cleanup()
			_ = logger.Sync()
		},
	}, nil
}

// ingest appends new upstream days before a computation. In-memory
// storage starts empty on every invocation, so commands always ingest.
func (e *env) ingest(ctx context.Context) (*ingestion.Result, error) {
	res, err := e.manager.Ingest(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return res, nil
}

// preflight checks stored history against the engine windows and prints
// each failing check. Failures are warnings; the command still runs.
func (e *env) preflight(ctx context.Context, out io.Writer) (*pipeline.SufficiencyResult, error) {
	checker := pipeline.NewSufficiencyChecker(e.stores.Metrics, e.engine.Config())
	res, err := checker.Check(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}
	for _, c := range res.Checks {
		if !c.Pass {
			fmt.Fprintf(out, "Preflight: %s needs %s, have %s\n", c.Name, c.Threshold, c.Actual)
		}
	}
	return res, nil
}
