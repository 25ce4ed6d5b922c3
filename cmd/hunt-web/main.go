package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"svw.info/hunt/internal/config"
)

type app struct {
	cfg    config.Config
	envErr error
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	// environment first, so flags can override it
	a.cfg, a.envErr = config.Load()

	root := &cobra.Command{
		Use:   "hunt-web",
		Short: "Scavenger hunt server",
		Long: `hunt-web serves a scavenger hunt: an ordered list of riddles and
multiple-choice steps played in a browser, with each player's progress
persisted between visits.

Run without a subcommand to start the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envErr != nil {
				return a.envErr
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			lvl, _ := a.cfg.Level()
			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(lvl)
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.Addr, "addr", a.cfg.Addr, "listen address")
	f.StringVar(&a.cfg.DataDir, "data-dir", a.cfg.DataDir, "directory for persisted progress")
	f.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "storage backend: sqlite|fs|memory")
	f.StringVar(&a.cfg.CatalogPath, "catalog", a.cfg.CatalogPath, "hunt definition file (.yaml or .json); bundled example when empty")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug|info|warn|error")
	f.BoolVar(&a.cfg.StrictAnswers, "strict", a.cfg.StrictAnswers, "require exact riddle answers (no typo tolerance)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runServe(cmd.Context())
			},
		},
		newCatalogCmd(a),
		newSessionsCmd(a),
		newResetCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
