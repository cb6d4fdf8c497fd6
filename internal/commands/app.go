package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/handlers"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/pipeline"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/ratelimit"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/redisutil"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/repository"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/service"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/tail"
)

// app holds the components shared by serve, intake and tail.
type app struct {
	logger   *logging.Logger
	redis    *redis.Client
	alerts   repository.AlertRepository
	reports  *repository.FileReportStore
	dlq      dlq.Backend
	stats    *service.Stats
	pipeline *pipeline.Pipeline
}

type appOptions struct {
	alerts  bool
	reports bool
}

func newApp(ctx context.Context, logger *logging.Logger, opts appOptions) (*app, error) {
	a := &app{logger: logger, stats: service.NewStats()}

	if cfg.Redis.Enabled {
		client, err := redisutil.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// Rate limiting degrades to a no-op; a Redis checkpoint store
			// cannot, and is rejected in tailer().
			logger.Warn("redis unavailable", logging.Error(err))
		} else {
			a.redis = client
		}
	}

	if opts.alerts {
		alerts, err := repository.OpenAlertRepository(ctx, cfg, logger.Logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open alert store: %w", err)
		}
		a.alerts = alerts
	}
	if opts.reports {
		a.reports = repository.NewFileReportStore(cfg.Reports.Path, cfg.Reports.Seed, logger.Logger)
	}

	backend, err := dlq.Open(ctx, cfg.DLQ, logger.Logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open dlq: %w", err)
	}
	a.dlq = backend

	pipelineOpts := []pipeline.Option{pipeline.WithLogger(logger.Logger)}
	if a.dlq != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithDLQ(a.dlq))
	}
	var reports repository.ReportStore
	if a.reports != nil {
		reports = a.reports
	}
	registry := normalizer.Default(normalizer.WithLogger(logger.Logger))
	a.pipeline = pipeline.New(registry, a.alerts, reports, pipelineOpts...)
	return a, nil
}

func (a *app) Close() {
	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			a.logger.Warn("failed to close alert store", logging.Error(err))
		}
	}
	if a.dlq != nil {
		a.dlq.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *app) rateLimiter() ratelimit.Limiter {
	if !cfg.Ingestion.RateLimitEnabled {
		return ratelimit.AllowAll{}
	}
	if a.redis == nil {
		a.logger.Warn("rate limiting requires redis, continuing without it")
		return ratelimit.AllowAll{}
	}
	limiter, err := ratelimit.NewRedisLimiter(a.redis, cfg.Ingestion.RateLimitRequests, cfg.Ingestion.RateLimitWindow)
	if err != nil {
		a.logger.Warn("failed to create rate limiter, continuing without it", logging.Error(err))
		return ratelimit.AllowAll{}
	}
	a.logger.Info("rate limiting enabled",
		slog.Int("requests", cfg.Ingestion.RateLimitRequests),
		slog.Duration("window", cfg.Ingestion.RateLimitWindow),
	)
	return limiter
}

func (a *app) healthHandler() *handlers.HealthHandler {
	opts := []handlers.HealthOption{}
	if a.alerts != nil {
		opts = append(opts, handlers.WithCheck("alerts", a.alerts))
		if b, ok := a.alerts.(handlers.BreakerStater); ok {
			opts = append(opts, handlers.WithBreaker(b))
		}
	}
	if a.redis != nil {
		opts = append(opts, handlers.WithCheck("redis", redisutil.Check{Client: a.redis}))
	}
	if a.dlq != nil {
		opts = append(opts, handlers.WithDLQ(a.dlq))
	}
	return handlers.NewHealthHandler(a.stats, opts...)
}

var errRedisCheckpoint = errors.New("checkpoint backend redis requires a reachable redis")

// tailer creates the follower. It fails with tail.ErrSourceMissing when the
// followed file does not exist.
func (a *app) tailer() (*tail.Follower, error) {
	var checkpoint tail.CheckpointStore
	if cfg.Tail.Resume {
		switch cfg.Checkpoint.Backend {
		case "redis":
			if a.redis == nil {
				return nil, errRedisCheckpoint
			}
			checkpoint = tail.NewRedisCheckpointStore(a.redis, cfg.Checkpoint.RedisKey)
		default:
			checkpoint = tail.NewFileCheckpointStore(cfg.Checkpoint.Path)
		}
	}

	return tail.New(tail.Config{
		Path:            cfg.Tail.Path,
		PollInterval:    cfg.Tail.PollInterval,
		Resume:          cfg.Tail.Resume,
		CheckpointEvery: cfg.Tail.CheckpointEvery,
	}, checkpoint, a.logger.Logger)
}
