package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// BreakerSettings configures the circuit breaker around an alert store.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	MaxRequests      uint32
	Timeout          time.Duration
}

// BreakerAlertRepository guards store calls with a circuit breaker. While the
// breaker is open, Exists and Insert fail fast with ErrStorage and the
// caller drops the record.
type BreakerAlertRepository struct {
	next AlertRepository
	cb   *gobreaker.CircuitBreaker[bool]
}

// NewBreakerAlertRepository wraps next with a circuit breaker.
func NewBreakerAlertRepository(next AlertRepository, s BreakerSettings, logger *slog.Logger) *BreakerAlertRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if s.Name == "" {
		s.Name = "alert-store"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.BreakerState.WithLabelValues(name).Set(open)
			logger.Warn("alert store circuit breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	metrics.BreakerState.WithLabelValues(s.Name).Set(0)

	return &BreakerAlertRepository{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[bool](settings),
	}
}

func (r *BreakerAlertRepository) Exists(ctx context.Context, key models.DedupKey) (bool, error) {
	found, err := r.cb.Execute(func() (bool, error) {
		return r.next.Exists(ctx, key)
	})
	return found, r.wrap("check alert", err)
}

func (r *BreakerAlertRepository) Insert(ctx context.Context, alert *models.Alert) (bool, error) {
	inserted, err := r.cb.Execute(func() (bool, error) {
		return r.next.Insert(ctx, alert)
	})
	return inserted, r.wrap("insert alert", err)
}

func (r *BreakerAlertRepository) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}

func (r *BreakerAlertRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *BreakerAlertRepository) Close() error {
	return r.next.Close()
}

// State returns the breaker state name for readiness output.
func (r *BreakerAlertRepository) State() string {
	return r.cb.State().String()
}

// wrap tags breaker rejections as storage errors; errors from the wrapped
// store already are.
func (r *BreakerAlertRepository) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return storageError(op, err)
	}
	return err
}
