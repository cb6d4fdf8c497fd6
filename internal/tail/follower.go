// Package tail follows a newline-delimited JSON file the way tail -F does and
// hands every complete alert line to a handler.
package tail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/metrics"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
)

// ErrSourceMissing is returned when the followed file does not exist at
// startup. It is fatal; the caller is expected to exit.
var ErrSourceMissing = errors.New("source file not found")

const (
	defaultPollInterval    = 200 * time.Millisecond
	defaultCheckpointEvery = 50
	checkpointSaveTimeout  = 5 * time.Second
)

// Handler receives one alert line wrapped in a file-tail envelope. The cursor
// moves past the line once Handler returns.
type Handler func(ctx context.Context, envelope *models.RawEnvelope)

// Config controls a Follower.
type Config struct {
	Path            string
	PollInterval    time.Duration
	Resume          bool
	CheckpointEvery int
}

// Follower reads a growing file from a cursor it owns.
type Follower struct {
	cfg        Config
	checkpoint CheckpointStore
	logger     *slog.Logger

	offset atomic.Int64
	ready  chan struct{}

	file    *os.File
	info    os.FileInfo
	reader  *bufio.Reader
	partial []byte
	pending int
}

// New creates a follower for cfg.Path. checkpoint may be nil when resume is
// disabled.
func New(cfg Config, checkpoint CheckpointStore, logger *slog.Logger) (*Follower, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, cfg.Path)
		}
		return nil, fmt.Errorf("stat %s: %w", cfg.Path, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{cfg: cfg, checkpoint: checkpoint, logger: logger, ready: make(chan struct{})}, nil
}

// Offset returns the byte offset just past the last handled line.
func (f *Follower) Offset() int64 {
	return f.offset.Load()
}

// Ready is closed once Run has opened the file and positioned the cursor.
func (f *Follower) Ready() <-chan struct{} {
	return f.ready
}

// Run follows the file until ctx is cancelled. Only a failure to open or read
// the file ends it early.
func (f *Follower) Run(ctx context.Context, handle Handler) error {
	if err := f.open(ctx); err != nil {
		return err
	}
	defer func() {
		f.saveCheckpoint(ctx)
		f.file.Close()
	}()

	close(f.ready)
	f.logger.InfoContext(ctx, "following file", logging.Path(f.cfg.Path), logging.Offset(f.Offset()))

	timer := time.NewTimer(f.cfg.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := f.reader.ReadBytes('\n')
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			line := chunk
			if len(f.partial) > 0 {
				line = append(f.partial, chunk...)
				f.partial = nil
			}
			f.handleLine(ctx, line, handle)
			continue
		}
		f.partial = append(f.partial, chunk...)

		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", f.cfg.Path, err)
		}

		if err := f.checkReplaced(ctx); err != nil {
			return err
		}

		timer.Reset(f.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

func (f *Follower) open(ctx context.Context) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, f.cfg.Path)
		}
		return fmt.Errorf("open %s: %w", f.cfg.Path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat %s: %w", f.cfg.Path, err)
	}

	start := f.startOffset(ctx, info)
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return fmt.Errorf("seek %s: %w", f.cfg.Path, err)
	}

	f.file = file
	f.info = info
	f.reader = bufio.NewReader(file)
	f.setOffset(start)
	return nil
}

// startOffset is end of file unless resume is on and a usable checkpoint
// exists for the same file.
func (f *Follower) startOffset(ctx context.Context, info os.FileInfo) int64 {
	size := info.Size()
	if !f.cfg.Resume || f.checkpoint == nil {
		return size
	}

	cp, found, err := f.checkpoint.Load(ctx)
	if err != nil {
		f.logger.WarnContext(ctx, "failed to load checkpoint, starting at end of file", logging.Error(err))
		return size
	}
	if !found || cp.Path != f.cfg.Path {
		return size
	}
	if ino := inode(info); cp.Inode != 0 && ino != 0 && cp.Inode != ino {
		f.logger.InfoContext(ctx, "file replaced since checkpoint, reading from start", logging.Path(f.cfg.Path))
		return 0
	}
	if cp.Offset > size {
		f.logger.WarnContext(ctx, "checkpoint beyond end of file, starting at end",
			logging.Offset(cp.Offset),
			slog.Int64("size", size),
		)
		return size
	}
	f.logger.InfoContext(ctx, "resuming from checkpoint", logging.Offset(cp.Offset))
	return cp.Offset
}

func (f *Follower) handleLine(ctx context.Context, line []byte, handle Handler) {
	f.setOffset(f.Offset() + int64(len(line)))
	defer f.lineDone(ctx)

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	metrics.LinesTotal.Inc()

	eventType, err := normalizer.EventType(line)
	if err != nil {
		metrics.MalformedLines.Inc()
		f.logger.DebugContext(ctx, "skipping malformed line", logging.Error(err), logging.Offset(f.Offset()))
		return
	}
	if eventType != "alert" {
		if eventType == "" {
			eventType = "none"
		}
		metrics.FilteredLines.WithLabelValues(eventType).Inc()
		return
	}

	data := make([]byte, len(line))
	copy(data, line)
	handle(ctx, &models.RawEnvelope{
		Source:     models.SourceFileTail,
		Body:       data,
		ReceivedAt: time.Now().UTC(),
	})
}

func (f *Follower) lineDone(ctx context.Context) {
	f.pending++
	if f.pending >= f.cfg.CheckpointEvery {
		f.saveCheckpoint(ctx)
	}
}

// checkReplaced reopens the file from the start after truncation or rotation.
func (f *Follower) checkReplaced(ctx context.Context) error {
	current, err := os.Stat(f.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		// Rotation in progress; keep reading the old handle until the new file
		// appears.
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.cfg.Path, err)
	}

	switch {
	case !os.SameFile(f.info, current):
		f.logger.InfoContext(ctx, "file rotated, reopening", logging.Path(f.cfg.Path))
		return f.reopen(ctx)
	case current.Size() < f.Offset()+int64(len(f.partial)):
		f.logger.InfoContext(ctx, "file truncated, reading from start",
			logging.Path(f.cfg.Path),
			slog.Int64("size", current.Size()),
			logging.Offset(f.Offset()),
		)
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", f.cfg.Path, err)
		}
		f.reset(current, 0)
		metrics.TailReopens.Inc()
	}
	return nil
}

func (f *Follower) reopen(ctx context.Context) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", f.cfg.Path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat %s: %w", f.cfg.Path, err)
	}

	if len(f.partial) > 0 {
		f.logger.WarnContext(ctx, "discarding unterminated line from rotated file", slog.Int("bytes", len(f.partial)))
	}
	f.file.Close()
	f.file = file
	f.reset(info, 0)
	f.saveCheckpoint(ctx)
	metrics.TailReopens.Inc()
	return nil
}

func (f *Follower) reset(info os.FileInfo, offset int64) {
	f.info = info
	f.reader = bufio.NewReader(f.file)
	f.partial = nil
	f.setOffset(offset)
}

func (f *Follower) setOffset(offset int64) {
	f.offset.Store(offset)
	metrics.TailOffset.Set(float64(offset))
}

func (f *Follower) saveCheckpoint(ctx context.Context) {
	f.pending = 0
	if !f.cfg.Resume || f.checkpoint == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointSaveTimeout)
	defer cancel()

	cp := Checkpoint{
		Path:      f.cfg.Path,
		Offset:    f.Offset(),
		Inode:     inode(f.info),
		UpdatedAt: time.Now().UTC(),
	}
	if err := f.checkpoint.Save(saveCtx, cp); err != nil {
		f.logger.WarnContext(ctx, "failed to save checkpoint", logging.Error(err), logging.Offset(cp.Offset))
	}
}
