package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/middleware"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
		want   string
	}{
		{name: "json format", level: slog.LevelInfo, format: "json", want: `"msg":"hello"`},
		{name: "text format", level: slog.LevelDebug, format: "text", want: "msg=hello"},
		{name: "default format is json", level: slog.LevelInfo, format: "", want: `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.level, tt.format)
			logger.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	logger.InfoContext(ctx, "report accepted")

	out := buf.String()
	if !strings.Contains(out, "req-123") || !strings.Contains(out, FieldRequestID) {
		t.Errorf("expected request ID in output, got: %s", out)
	}

	buf.Reset()
	logger.InfoContext(context.Background(), "no request")
	if strings.Contains(buf.String(), FieldRequestID) {
		t.Errorf("did not expect request ID in output, got: %s", buf.String())
	}
}

func TestWithContext_DerivedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json").With(Service("sentry"))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-456")
	logger.Logger.With(slog.String("component", "handlers")).ErrorContext(ctx, "failed to store report")

	out := buf.String()
	for _, want := range []string{"req-456", `"service":"sentry"`, `"component":"handlers"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldHelpers(t *testing.T) {
	if attr := Error(errors.New("boom")); attr.Key != FieldError || attr.Value.String() != "boom" {
		t.Errorf("unexpected error attr: %v", attr)
	}
	if attr := Error(nil); attr.Value.String() != "" {
		t.Errorf("nil error should render empty, got %q", attr.Value.String())
	}
	if attr := ReportID(1700000001); attr.Value.Int64() != 1700000001 {
		t.Errorf("unexpected report id attr: %v", attr)
	}

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")
	logger.Info("duplicate", AlertKey(models.DedupKey{SignatureID: "2001", SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Timestamp: "t"}))
	if !strings.Contains(buf.String(), `"alert":{"alert_id":"2001"`) {
		t.Errorf("expected grouped alert key, got: %s", buf.String())
	}
}
