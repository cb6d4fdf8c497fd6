// Package commands implements the sentry command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/output"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sentry",
	Short: "Sentry incident ingestion service",
	Long: `sentry ingests Suricata alerts from eve.json and incident reports pushed
over HTTP, deduplicates alerts and stores both durably.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/sentry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level: debug, info, warn, error")
}

// newLogger builds the process logger. Long-running commands log to stdout;
// one-shot commands log to stderr so their output stays parseable.
func newLogger(w io.Writer) *logging.Logger {
	logger := logging.NewWithWriter(w, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service("sentry"))
	logging.SetDefault(logger)
	return logger
}

func stderrLogger() *logging.Logger {
	return newLogger(os.Stderr)
}

func outputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "table", "output format: table, json, yaml")
}

func checkOutput(format string) error {
	if output.ValidFormat(format) {
		return nil
	}
	return fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
}
