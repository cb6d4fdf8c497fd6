package dlq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/messaging/nats"
)

// Backend is a dead letter queue an operator can inspect and purge.
type Backend interface {
	Writer
	Stats(ctx context.Context) Stats
	List(ctx context.Context, limit int) ([]FailedRecord, error)
	Purge(ctx context.Context) (int, error)
	Close() error
}

// Open creates the backend selected by cfg.Backend. It returns nil, nil
// when the DLQ is disabled.
func Open(ctx context.Context, cfg config.DLQConfig, logger *slog.Logger) (Backend, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "file", "":
		q, err := NewQueue(cfg.BasePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("dead letter queue enabled", slog.String("backend", "file"), slog.String("path", cfg.BasePath))
		return q, nil
	case "jetstream":
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NatsURL
		natsCfg.Name = "sentry-dlq"
		natsCfg.Logger = logger
		js, err := nats.NewJetStreamClient(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to nats for dlq: %w", err)
		}
		q, err := NewJetStreamQueue(ctx, js, logger)
		if err != nil {
			js.Close()
			return nil, err
		}
		logger.Info("dead letter queue enabled", slog.String("backend", "jetstream"), slog.String("nats", cfg.NatsURL))
		return q, nil
	default:
		return nil, fmt.Errorf("unknown DLQ backend: %s (supported: file, jetstream)", cfg.Backend)
	}
}

// Close is a no-op for the file queue.
func (q *Queue) Close() error { return nil }

// Close drops the NATS connection.
func (q *JetStreamQueue) Close() error {
	if q == nil || q.js == nil {
		return nil
	}
	return q.js.Close()
}
