package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/catalog"
	"github.com/spectra-tools/mrsbasis/internal/config"
	"github.com/spectra-tools/mrsbasis/internal/logging"
	"github.com/spectra-tools/mrsbasis/internal/simrun"
)

// timeRound is the display granularity for reported durations.
const timeRound = 10 * time.Millisecond

// env bundles the per-invocation machinery most commands need.
type env struct {
	root    string
	cfg     *config.Config
	log     *slog.Logger
	catalog *catalog.Catalog
	trace   *logging.InvocationLogger
}

// loadEnv builds the command environment from flags, config file and
// environment variables.
func loadEnv(cmd *cobra.Command) (*env, error) {
	root, _ := cmd.Flags().GetString("root")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cat, err := catalog.Open(root)
	if err != nil {
		return nil, err
	}

	return &env{
		root:    root,
		cfg:     cfg,
		log:     logging.NewLogger(cfg.Logging.Level, os.Stderr),
		catalog: cat,
		trace:   logging.NewInvocationLogger(filepath.Join(root, ".mrsbasis"), cfg.Logging.Level),
	}, nil
}

// close releases the environment's resources.
func (e *env) close() {
	e.trace.Close()
	e.catalog.Close()
}

// runOptions adapts the environment for simrun, streaming tool output to
// the user's terminal.
func (e *env) runOptions() simrun.Options {
	return simrun.Options{
		Config:  e.cfg,
		Catalog: e.catalog,
		Logger:  e.log,
		Trace:   e.trace,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	return ctx, cancel
}
