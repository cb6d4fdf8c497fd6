package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/pipeline"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/repository"
)

// ReportService backs the HTTP report endpoints.
type ReportService struct {
	pipeline *pipeline.Pipeline
	store    repository.ReportStore
	stats    *Stats
	logger   *slog.Logger
}

// NewReportService creates a report service.
func NewReportService(p *pipeline.Pipeline, store repository.ReportStore, stats *Stats, logger *slog.Logger) *ReportService {
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{pipeline: p, store: store, stats: stats, logger: logger}
}

// Submit normalizes and stores one pushed report. Errors are the
// pipeline's: *normalizer.ValidationError and normalizer.ErrMalformed for bad
// input, repository.ErrStorage when the report could not be written.
func (s *ReportService) Submit(ctx context.Context, envelope *models.RawEnvelope) (*models.Report, error) {
	res, err := s.pipeline.Process(ctx, envelope)
	switch res.Outcome {
	case pipeline.OutcomeStored:
		s.stats.processed.Add(1)
		return res.Record.Report, nil
	case pipeline.OutcomeDropped:
		s.stats.dropped.Add(1)
		return nil, err
	}

	s.stats.failed.Add(1)
	if err == nil {
		err = fmt.Errorf("unexpected pipeline outcome %q", res.Outcome)
	}
	return nil, err
}

// List returns all stored reports in insertion order.
func (s *ReportService) List(ctx context.Context) ([]*models.Report, error) {
	return s.store.List(ctx)
}
