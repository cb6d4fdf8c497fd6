// Package pipeline runs one envelope through normalize, dedup and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/database"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dedup"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/repository"
)

// Outcome is the terminal state of one envelope.
type Outcome string

const (
	OutcomeStored    Outcome = metrics.OutcomeStored
	OutcomeDuplicate Outcome = metrics.OutcomeDuplicate
	OutcomeDropped   Outcome = metrics.OutcomeDropped
	OutcomeRejected  Outcome = metrics.OutcomeRejected
)

// Result reports what happened to an envelope. Record is nil when the
// envelope was rejected before normalization completed.
type Result struct {
	Outcome Outcome
	Record  *models.NormalizedRecord
}

// Pipeline orchestrates normalization, deduplication and storage.
type Pipeline struct {
	normalizers *normalizer.Registry
	gate        *dedup.Gate
	alerts      repository.AlertRepository
	reports     repository.ReportStore
	dlq         dlq.Writer
	logger      *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithDLQ sends dropped records to w.
func WithDLQ(w dlq.Writer) Option {
	return func(p *Pipeline) { p.dlq = w }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a pipeline instance. alerts or reports may be nil when the
// process only runs one ingestion path.
func New(registry *normalizer.Registry, alerts repository.AlertRepository, reports repository.ReportStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizers: registry,
		alerts:      alerts,
		reports:     reports,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if alerts != nil {
		p.gate = dedup.NewGate(alerts, p.logger)
	}
	return p
}

// Process converts the raw envelope into a stored record. The error is
// non-nil for rejected envelopes (normalization failed) and for dropped
// records (storage failed); in the latter case it wraps repository.ErrStorage.
func (p *Pipeline) Process(ctx context.Context, envelope *models.RawEnvelope) (Result, error) {
	if p == nil {
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("pipeline not configured")
	}

	rec, err := p.normalizers.Normalize(ctx, envelope)
	if err != nil {
		p.countRejected(envelope, err)
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("normalize: %w", err)
	}

	var res Result
	switch rec.Source {
	case models.RecordAlert:
		res, err = p.storeAlert(ctx, envelope, rec)
	case models.RecordReport:
		res, err = p.storeReport(ctx, envelope, rec)
	default:
		err = fmt.Errorf("unknown record source %q", rec.Source)
		res = Result{Outcome: OutcomeRejected, Record: rec}
	}

	metrics.RecordsTotal.WithLabelValues(string(rec.Source), string(res.Outcome)).Inc()
	return res, err
}

func (p *Pipeline) storeAlert(ctx context.Context, envelope *models.RawEnvelope, rec *models.NormalizedRecord) (Result, error) {
	if p.alerts == nil {
		return Result{Outcome: OutcomeDropped, Record: rec}, fmt.Errorf("%w: no alert store configured", repository.ErrStorage)
	}

	lookupCtx, cancel := database.QueryContext(ctx)
	admitted, err := p.gate.Admit(lookupCtx, rec)
	cancel()
	if err != nil {
		return p.drop(ctx, envelope, rec, "exists", dlq.ReasonLookup, err)
	}
	if !admitted {
		p.logger.InfoContext(ctx, "skipping duplicate alert", logging.AlertKey(rec.DedupKey))
		return Result{Outcome: OutcomeDuplicate, Record: rec}, nil
	}

	writeCtx, cancel := database.WriteContext(ctx)
	start := time.Now()
	inserted, err := p.alerts.Insert(writeCtx, rec.Alert)
	cancel()
	metrics.StorageDuration.WithLabelValues("insert_alert").Observe(time.Since(start).Seconds())
	if err != nil {
		return p.drop(ctx, envelope, rec, "insert_alert", dlq.ReasonStore, err)
	}
	if !inserted {
		// Another writer stored the same key between the lookup and the insert.
		p.logger.InfoContext(ctx, "skipping duplicate alert", logging.AlertKey(rec.DedupKey))
		return Result{Outcome: OutcomeDuplicate, Record: rec}, nil
	}

	if rec.DedupKey.Complete() {
		p.logger.InfoContext(ctx, "inserted alert", logging.AlertKey(rec.DedupKey))
	} else {
		p.logger.DebugContext(ctx, "inserted alert without complete key")
	}
	return Result{Outcome: OutcomeStored, Record: rec}, nil
}

func (p *Pipeline) storeReport(ctx context.Context, envelope *models.RawEnvelope, rec *models.NormalizedRecord) (Result, error) {
	if p.reports == nil {
		return Result{Outcome: OutcomeDropped, Record: rec}, fmt.Errorf("%w: no report store configured", repository.ErrStorage)
	}

	start := time.Now()
	err := p.reports.Append(ctx, rec.Report)
	metrics.StorageDuration.WithLabelValues("append_report").Observe(time.Since(start).Seconds())
	if err != nil {
		return p.drop(ctx, envelope, rec, "append_report", dlq.ReasonStore, err)
	}

	p.logger.InfoContext(ctx, "received new report",
		logging.ReportID(rec.Report.ID),
		slog.String(logging.FieldTitle, rec.Report.Title()),
	)
	return Result{Outcome: OutcomeStored, Record: rec}, nil
}

// drop logs and counts a storage failure and hands the record to the DLQ.
// The record is never retried.
func (p *Pipeline) drop(ctx context.Context, envelope *models.RawEnvelope, rec *models.NormalizedRecord, op, reason string, cause error) (Result, error) {
	metrics.StorageErrors.WithLabelValues(op).Inc()
	p.logger.ErrorContext(ctx, "storage failed, dropping record",
		slog.String("operation", op),
		slog.String(logging.FieldSource, string(rec.Source)),
		slog.String("record", rec.ID()),
		logging.Error(cause),
	)

	if p.dlq != nil {
		if err := p.dlq.Write(ctx, envelope, rec, cause, reason); err != nil {
			p.logger.WarnContext(ctx, "failed to write dropped record to dlq", logging.Error(err))
		}
	}

	if !errors.Is(cause, repository.ErrStorage) {
		cause = fmt.Errorf("%w: %w", repository.ErrStorage, cause)
	}
	return Result{Outcome: OutcomeDropped, Record: rec}, cause
}

func (p *Pipeline) countRejected(envelope *models.RawEnvelope, err error) {
	source := ""
	if envelope != nil {
		source = string(envelope.Source)
	}
	kind := "malformed"
	var verr *normalizer.ValidationError
	switch {
	case errors.As(err, &verr):
		kind = "validation"
	case errors.Is(err, normalizer.ErrUnsupportedSource):
		kind = "unsupported"
	}
	metrics.NormalizationErrors.WithLabelValues(source, kind).Inc()
}
