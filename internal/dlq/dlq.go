// Package dlq keeps records that were dropped because storage failed, so an
// operator can inspect them later. Nothing here retries.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// Reasons recorded with a failed record.
const (
	ReasonLookup = "lookup"
	ReasonStore  = "store"
)

// FailedRecord captures a dropped record and why it was dropped.
type FailedRecord struct {
	ID        string                   `json:"id"`
	Timestamp time.Time                `json:"timestamp"`
	Envelope  *models.RawEnvelope      `json:"envelope"`
	Record    *models.NormalizedRecord `json:"record,omitempty"`
	Error     string                   `json:"error"`
	Reason    string                   `json:"reason"`
}

// Stats summarises a dead letter queue for the readiness probe and the CLI.
// Written counts records this process added; Pending is what the backend
// currently holds.
type Stats struct {
	Enabled  bool   `json:"enabled"`
	Backend  string `json:"backend,omitempty"`
	Location string `json:"location,omitempty"`
	Written  uint64 `json:"written"`
	Pending  uint64 `json:"pending"`
	Bytes    uint64 `json:"bytes,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Writer accepts dropped records.
type Writer interface {
	Write(ctx context.Context, envelope *models.RawEnvelope, record *models.NormalizedRecord, err error, reason string) error
}

// Queue writes failed records to disk, one JSON file per record.
type Queue struct {
	basePath string
	logger   *slog.Logger
	mu       sync.Mutex
	written  uint64
}

// NewQueue creates a DLQ that writes to the specified directory.
func NewQueue(basePath string, logger *slog.Logger) (*Queue, error) {
	if basePath == "" {
		basePath = "/var/lib/sentry/dlq"
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}

	return &Queue{basePath: basePath, logger: logger}, nil
}

func newFailedRecord(envelope *models.RawEnvelope, record *models.NormalizedRecord, err error, reason string) FailedRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FailedRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Envelope:  envelope,
		Record:    record,
		Error:     msg,
		Reason:    reason,
	}
}

// Write records a failed record. A nil queue discards silently.
func (q *Queue) Write(ctx context.Context, envelope *models.RawEnvelope, record *models.NormalizedRecord, err error, reason string) error {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	failed := newFailedRecord(envelope, record, err, reason)
	filename := fmt.Sprintf("failed_%d_%06d_%s.json", failed.Timestamp.UnixNano(), q.written, reason)

	data, marshalErr := json.MarshalIndent(failed, "", "  ")
	if marshalErr != nil {
		metrics.DLQWrites.WithLabelValues("file", "error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", marshalErr)
	}

	if err := os.WriteFile(filepath.Join(q.basePath, filename), data, 0o644); err != nil {
		metrics.DLQWrites.WithLabelValues("file", "error").Inc()
		return fmt.Errorf("write dlq entry: %w", err)
	}

	q.written++
	metrics.DLQWrites.WithLabelValues("file", "ok").Inc()
	q.logger.InfoContext(ctx, "wrote dropped record to dlq", slog.String("file", filename), slog.String("reason", reason))
	return nil
}

// Stats returns DLQ counters.
func (q *Queue) Stats(ctx context.Context) Stats {
	if q == nil {
		return Stats{Backend: "file"}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	st := Stats{Enabled: true, Backend: "file", Location: q.basePath, Written: q.written}
	files, err := q.entries()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Pending = uint64(len(files))
	return st
}

// List returns stored failed records, oldest first.
func (q *Queue) List(ctx context.Context, limit int) ([]FailedRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := q.entries()
	if err != nil {
		return nil, err
	}

	var out []FailedRecord
	for _, name := range files {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, name))
		if err != nil {
			q.logger.WarnContext(ctx, "failed to read dlq file", slog.String("file", name), logging.Error(err))
			continue
		}
		var failed FailedRecord
		if err := json.Unmarshal(data, &failed); err != nil {
			q.logger.WarnContext(ctx, "failed to parse dlq file", slog.String("file", name), logging.Error(err))
			continue
		}
		out = append(out, failed)
	}
	return out, nil
}

// Purge removes every stored record and returns how many were deleted.
func (q *Queue) Purge(ctx context.Context) (int, error) {
	if q == nil {
		return 0, fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := q.entries()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, name := range files {
		if err := os.Remove(filepath.Join(q.basePath, name)); err != nil {
			q.logger.WarnContext(ctx, "failed to delete dlq file", slog.String("file", name), logging.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// entries lists DLQ file names in write order.
func (q *Queue) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "failed_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
