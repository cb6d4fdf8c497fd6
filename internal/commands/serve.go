package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/handlers"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/server"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP intake and the eve.json follower",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), true, true)
	},
}

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Run only the HTTP report intake",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), true, false)
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Run only the eve.json follower",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), false, true)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, intakeCmd, tailCmd)
}

// run starts the requested flows and blocks until ctx is cancelled or one
// of them fails.
func run(ctx context.Context, withHTTP, withTail bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger(os.Stdout)
	logger.Info("starting sentry",
		slog.Bool("http", withHTTP),
		slog.Bool("tail", withTail),
		slog.String("database", cfg.Database.Type),
		slog.String("log_level", cfg.Logging.Level),
	)
	if cfgFile != "" {
		logger.Info("loaded configuration", slog.String("config_path", cfgFile))
	}

	a, err := newApp(ctx, logger, appOptions{alerts: withTail, reports: withHTTP})
	if err != nil {
		return err
	}
	defer a.Close()

	// Open the followed file before serving so a missing file fails fast.
	var tailRun func(context.Context) error
	if withTail {
		follower, err := a.tailer()
		if err != nil {
			return err
		}
		alerts := service.NewAlertService(a.pipeline, a.stats, logger.Logger)
		tailRun = func(ctx context.Context) error {
			return follower.Run(ctx, alerts.HandleLine)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if withHTTP {
		reports := service.NewReportService(a.pipeline, a.reports, a.stats, logger.Logger)
		router := server.NewRouter(
			handlers.NewReportHandler(reports, a.rateLimiter(), cfg.Ingestion.MaxBodySize, logger.Logger),
			a.healthHandler(),
			logger.Logger,
		)
		srv := server.New(cfg.Server, router)
		g.Go(func() error {
			return server.Run(gctx, srv, cfg.Server.WriteTimeout, logger.Logger)
		})
	}
	if tailRun != nil {
		g.Go(func() error {
			if err := tailRun(gctx); err != nil {
				return fmt.Errorf("tail: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()
	h := a.stats.Health()
	logger.Info("sentry stopped",
		slog.Uint64("processed", h.Processed),
		slog.Uint64("duplicates", h.Duplicates),
		slog.Uint64("dropped", h.Dropped),
		slog.Uint64("failed", h.Failed),
	)
	if err != nil {
		logger.Error("sentry exited with error", logging.Error(err))
	}
	return err
}
