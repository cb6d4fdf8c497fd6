// Package dedup decides whether a normalized record should be stored.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// AlertLookup is the read side of the alert store used by the gate.
type AlertLookup interface {
	Exists(ctx context.Context, key models.DedupKey) (bool, error)
}

// Gate rejects alerts whose complete key already exists in the store.
// Reports and alerts with incomplete keys are always admitted.
type Gate struct {
	store  AlertLookup
	logger *slog.Logger
}

// NewGate creates a gate backed by the given alert store.
func NewGate(store AlertLookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// Admit reports whether rec should be stored. A store error is returned
// unchanged in meaning so the caller can drop the record.
func (g *Gate) Admit(ctx context.Context, rec *models.NormalizedRecord) (bool, error) {
	if rec == nil || rec.Source != models.RecordAlert || !rec.DedupKey.Complete() {
		return true, nil
	}

	exists, err := g.store.Exists(ctx, rec.DedupKey)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		g.logger.DebugContext(ctx, "duplicate alert skipped", logging.AlertKey(rec.DedupKey))
		return false, nil
	}
	return true, nil
}
