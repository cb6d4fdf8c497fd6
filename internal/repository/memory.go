package repository

import (
	"context"
	"sync"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// MemoryAlertRepository keeps alerts in process memory. It applies the same
// uniqueness rule as the database backends and is used for development and
// tests.
type MemoryAlertRepository struct {
	mu     sync.RWMutex
	alerts []*models.Alert
	keys   map[models.DedupKey]struct{}
}

// NewMemoryAlertRepository creates an empty in-memory alert repository.
func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{keys: make(map[models.DedupKey]struct{})}
}

func (r *MemoryAlertRepository) Exists(ctx context.Context, key models.DedupKey) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.keys[key]
	return ok, nil
}

func (r *MemoryAlertRepository) Insert(ctx context.Context, alert *models.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := alert.Key()
	if key.Complete() {
		if _, ok := r.keys[key]; ok {
			return false, nil
		}
		r.keys[key] = struct{}{}
	}
	r.alerts = append(r.alerts, alert)
	return true, nil
}

func (r *MemoryAlertRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.alerts)), nil
}

// Alerts returns a snapshot of the stored alerts in insertion order.
func (r *MemoryAlertRepository) Alerts() []*models.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

func (r *MemoryAlertRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryAlertRepository) Close() error { return nil }
