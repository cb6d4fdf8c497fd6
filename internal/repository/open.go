package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/database"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/migrations"
)

// OpenAlertRepository connects the alert store selected by cfg.Database.Type
// and wraps it in a circuit breaker when cfg.Breaker.Enabled is set.
func OpenAlertRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (AlertRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var repo AlertRepository
	switch cfg.Database.Type {
	case "postgres":
		pg := cfg.Database.Postgres
		if cfg.Database.MigrateOnStart {
			if err := migrations.Up(pg.ConnString()); err != nil {
				return nil, fmt.Errorf("migrate alert schema: %w", err)
			}
			logger.Info("alert schema is current", slog.String("database", pg.Database))
		}
		connectCtx, cancel := context.WithTimeout(ctx, database.DefaultMigrateTimeout)
		defer cancel()
		r, err := NewPostgresAlertRepository(connectCtx, pg.ConnString(), pg.MaxConns)
		if err != nil {
			return nil, err
		}
		repo = r
	case "opensearch":
		connectCtx, cancel := context.WithTimeout(ctx, database.DefaultMigrateTimeout)
		defer cancel()
		r, err := NewOpenSearchAlertRepository(connectCtx, cfg.Database.OpenSearch)
		if err != nil {
			return nil, err
		}
		repo = r
	case "memory":
		logger.Warn("using in-memory alert store, alerts are lost on exit")
		repo = NewMemoryAlertRepository()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Database.Type)
	}

	logger.Info("alert store connected", slog.String("backend", cfg.Database.Type))

	if !cfg.Breaker.Enabled {
		return repo, nil
	}
	return NewBreakerAlertRepository(repo, BreakerSettings{
		Name:             cfg.Database.Type,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		MaxRequests:      cfg.Breaker.MaxRequests,
		Timeout:          cfg.Breaker.Timeout,
	}, logger), nil
}
