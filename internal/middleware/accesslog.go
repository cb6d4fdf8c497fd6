package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseMeter remembers the status and body size a handler produced.
type responseMeter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(p []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(p)
	m.bytes += n
	return n, err
}

func (m *responseMeter) Unwrap() http.ResponseWriter { return m.ResponseWriter }

// AccessLog writes one line per request. Server errors log at warn level.
// The request ID comes from the context, so the logger's handler is
// expected to add it.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			meter := &responseMeter{ResponseWriter: w}
			next.ServeHTTP(meter, r)
			if meter.status == 0 {
				meter.status = http.StatusOK
			}

			level := slog.LevelInfo
			if meter.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", meter.status),
				slog.Int("bytes", meter.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
