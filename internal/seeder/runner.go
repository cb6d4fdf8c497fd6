package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
)

// AlertOptions controls WriteEve.
type AlertOptions struct {
	Count      int
	AlertRatio float64
	// MalformedEvery writes a truncated line after every N lines; 0 disables.
	MalformedEvery int
	Interval       time.Duration
}

// WriteEve appends generated lines to w.
func (g *Generator) WriteEve(ctx context.Context, w io.Writer, opts AlertOptions) (int, error) {
	written := 0
	for i := 0; i < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		line := g.Line(opts.AlertRatio)
		if opts.MalformedEvery > 0 && (i+1)%opts.MalformedEvery == 0 {
			line = line[:len(line)/2]
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return written, fmt.Errorf("write line: %w", err)
		}
		written++

		if opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return written, ctx.Err()
			case <-time.After(opts.Interval):
			}
		}
	}
	return written, nil
}

// AppendEve opens path for appending and writes generated lines to it.
func (g *Generator) AppendEve(ctx context.Context, path string, opts AlertOptions) (int, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	n, werr := g.WriteEve(ctx, f, opts)
	if err := f.Close(); err != nil && werr == nil {
		werr = err
	}
	return n, werr
}

// ReportPoster sends generated reports to a running intake.
type ReportPoster struct {
	URL        string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Wrap sends each report JSON-encoded inside {"body":{"log":...}} the way
	// automation tools do.
	Wrap bool
}

// Post sends count reports and returns how many were accepted.
func (p *ReportPoster) Post(ctx context.Context, g *Generator, count int) (int, error) {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accepted := 0
	for i := 0; i < count; i++ {
		body, err := p.encode(g.Report())
		if err != nil {
			return accepted, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
		if err != nil {
			return accepted, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return accepted, fmt.Errorf("post report: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			logger.WarnContext(ctx, "report rejected", slog.Int("status", resp.StatusCode))
			continue
		}
		accepted++
	}
	logger.InfoContext(ctx, "seeded reports", slog.Int("accepted", accepted), slog.Int("sent", count), logging.Path(p.URL))
	return accepted, nil
}

func (p *ReportPoster) encode(report map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	if !p.Wrap {
		return data, nil
	}
	return json.Marshal(map[string]interface{}{
		"body": map[string]string{"log": string(data)},
	})
}
