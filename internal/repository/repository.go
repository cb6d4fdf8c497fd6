// Package repository persists canonical records: alerts in a database with a
// uniqueness guarantee on the dedup key, reports in a JSON file collection.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

var (
	// ErrStorage wraps every failure to read or write a backing store.
	ErrStorage = errors.New("storage error")

	// ErrUnknownBackend is returned for an unsupported database.type.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// AlertRepository defines the interface for alert persistence.
type AlertRepository interface {
	// Exists reports whether an alert with the given complete key is stored.
	Exists(ctx context.Context, key models.DedupKey) (bool, error)
	// Insert stores the alert. It returns false without error when an alert
	// with the same complete key was stored concurrently.
	Insert(ctx context.Context, alert *models.Alert) (bool, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// ReportStore defines the interface for report persistence.
type ReportStore interface {
	// List returns every stored report in insertion order.
	List(ctx context.Context) ([]*models.Report, error)
	Append(ctx context.Context, report *models.Report) error
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
