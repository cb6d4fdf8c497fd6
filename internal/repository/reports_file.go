package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// FileReportStore keeps every report in one JSON array on disk. Each append
// rewrites the whole collection through a temp file and rename, and a single
// mutex serialises readers and writers so a GET issued after a successful
// POST always sees the new report.
type FileReportStore struct {
	path   string
	seed   bool
	logger *slog.Logger

	mu sync.Mutex
}

// NewFileReportStore creates a store backed by path. When seed is true and the
// file does not exist, it is created with a single sample report.
func NewFileReportStore(path string, seed bool, logger *slog.Logger) *FileReportStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReportStore{path: path, seed: seed, logger: logger}
}

// List returns all stored reports in insertion order.
func (s *FileReportStore) List(ctx context.Context) ([]*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports, _ := s.load(ctx)
	return reports, nil
}

// Append adds report to the end of the collection.
func (s *FileReportStore) Append(ctx context.Context, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports, damaged := s.load(ctx)
	if damaged {
		if err := s.moveAside(ctx); err != nil {
			return storageError("append report", err)
		}
	}

	reports = append(reports, report)
	if err := s.write(reports); err != nil {
		return storageError("append report", err)
	}
	return nil
}

// load reads the collection. A missing file yields an empty or seeded
// collection; an unreadable or corrupt one yields an empty collection and
// damaged=true so the next write can preserve the old file.
func (s *FileReportStore) load(ctx context.Context) (reports []*models.Report, damaged bool) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if !s.seed {
			return []*models.Report{}, false
		}
		reports = SeedReports()
		if err := s.write(reports); err != nil {
			s.logger.WarnContext(ctx, "failed to write seed reports", logging.Path(s.path), logging.Error(err))
		}
		return reports, false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "report collection unreadable, serving empty list", logging.Path(s.path), logging.Error(err))
		return []*models.Report{}, true
	}

	if err := json.Unmarshal(data, &reports); err != nil {
		s.logger.WarnContext(ctx, "report collection corrupt, serving empty list", logging.Path(s.path), logging.Error(err))
		return []*models.Report{}, true
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return reports, false
}

func (s *FileReportStore) moveAside(ctx context.Context) error {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, target); err != nil {
		return fmt.Errorf("move corrupt collection aside: %w", err)
	}
	s.logger.WarnContext(ctx, "moved corrupt report collection aside",
		logging.Path(s.path),
		slog.String("moved_to", target),
	)
	return nil
}

func (s *FileReportStore) write(reports []*models.Report) error {
	data, err := json.MarshalIndent(reports, "", "    ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace report collection: %w", err)
	}
	return nil
}
