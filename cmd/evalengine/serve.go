package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/evalengine/internal/api"
	"github.com/seantiz/evalengine/internal/config"
	"github.com/seantiz/evalengine/internal/coord"
	"github.com/seantiz/evalengine/internal/engine"
	"github.com/seantiz/evalengine/internal/evaluator"
	"github.com/seantiz/evalengine/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the polling engine",
		Long: `Runs the engine until interrupted. Configuration comes from EVALENGINE_*
environment variables; the shared roots fall back to DY_SIDECAR_PATH_INPUTS
and DY_SIDECAR_PATH_OUTPUTS.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	return serve(cmd.Context(), cfg, logger)
}

// serve wires the engine from cfg and blocks until ctx is cancelled or a
// component fails.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ev, err := evaluator.NewDefaultRegistry().Resolve(cfg.Evaluator, evaluator.Options{
		ConfigPath: cfg.EvaluatorConfig,
		Command:    cfg.EvaluatorCmd,
	})
	if err != nil {
		return err
	}

	var src engine.Source = coord.NewFileSource(cfg.InputsDir)
	if cfg.Watch {
		ws, err := coord.NewWatchSource(cfg.InputsDir, logger)
		if err != nil {
			logger.Warn("file watch unavailable, polling only", "error", err)
		} else {
			defer ws.Close()
			src = ws
		}
	}

	var (
		journal engine.Journal
		st      store.Store
	)
	if cfg.DBPath != "" {
		db, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		journal, st = db, db
	}

	eng := engine.NewEngine(engine.Config{
		Source:      src,
		Publisher:   coord.NewFilePublisher(cfg.OutputsDir),
		Evaluator:   ev,
		Journal:     journal,
		Interval:    cfg.PollInterval,
		EvalTimeout: cfg.EvalTimeout,
	}, logger)

	logger.Info("evalengine: starting",
		"engine_id", eng.ID(),
		"inputs_dir", cfg.InputsDir,
		"outputs_dir", cfg.OutputsDir,
		"evaluator", cfg.Evaluator,
		"watch", cfg.Watch,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	if cfg.ListenAddr != "" {
		srv := api.NewServer(cfg.ListenAddr, eng, st, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}
