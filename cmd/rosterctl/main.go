package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// runtimeDeps is loaded once per invocation before any subcommand runs.
type runtimeDeps struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(deps *runtimeDeps) *cobra.Command {
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Operator tooling for the professor roster service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("load config: %w", err))
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("init logger: %w", err))
			}
			deps.cfg, deps.logger = cfg, logr
			return nil
		},
	}
	root.AddCommand(newImportCmd(deps), newMigrateCmd(deps), newTokenCmd(deps))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &runtimeDeps{}
	err := newRootCmd(deps).ExecuteContext(ctx)
	if deps.logger != nil {
		_ = deps.logger.Sync()
	}
	if err == nil {
		os.Exit(exitOK)
	}

	fmt.Fprintln(os.Stderr, "rosterctl:", err)
	var coded *exitError
	if errors.As(err, &coded) {
		os.Exit(coded.code)
	}
	os.Exit(exitFailure)
}
