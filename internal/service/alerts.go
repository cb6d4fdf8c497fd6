package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/pipeline"
)

// AlertService consumes lines from the file tail.
type AlertService struct {
	pipeline *pipeline.Pipeline
	stats    *Stats
	logger   *slog.Logger
}

// NewAlertService creates the tail handler.
func NewAlertService(p *pipeline.Pipeline, stats *Stats, logger *slog.Logger) *AlertService {
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertService{pipeline: p, stats: stats, logger: logger}
}

// HandleLine processes one alert line. Failures are contained to the line:
// nothing here stops the follower.
func (s *AlertService) HandleLine(ctx context.Context, envelope *models.RawEnvelope) {
	res, err := s.pipeline.Process(ctx, envelope)
	switch res.Outcome {
	case pipeline.OutcomeStored:
		s.stats.processed.Add(1)
	case pipeline.OutcomeDuplicate:
		s.stats.duplicates.Add(1)
	case pipeline.OutcomeDropped:
		s.stats.dropped.Add(1)
	default:
		s.stats.failed.Add(1)
		if errors.Is(err, normalizer.ErrMalformed) {
			s.logger.DebugContext(ctx, "discarding malformed alert line", logging.Error(err))
		} else if err != nil {
			s.logger.WarnContext(ctx, "discarding alert line", logging.Error(err))
		}
	}
}
