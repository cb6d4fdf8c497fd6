package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedState string

func (s fixedState) State() string { return string(s) }

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestReady(t *testing.T) {
	h := NewHealthHandler(service.NewStats(),
		WithCheck("alerts", pingFunc(func(context.Context) error { return nil })),
		WithBreaker(fixedState("closed")),
	)

	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp["status"])
	assert.Equal(t, "closed", resp["breaker"])
	assert.Contains(t, resp, "stats")
}

func TestReady_DependencyDown(t *testing.T) {
	h := NewHealthHandler(nil,
		WithCheck("alerts", pingFunc(func(context.Context) error { return errors.New("connection refused") })),
	)

	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "connection refused", resp["checks"].(map[string]interface{})["alerts"])
}

func TestReady_DLQStats(t *testing.T) {
	q, err := dlq.NewQueue(t.TempDir(), nil)
	require.NoError(t, err)
	env := &models.RawEnvelope{Source: models.SourceFileTail, Body: []byte(`{"event_type":"alert"}`)}
	require.NoError(t, q.Write(context.Background(), env, nil, errors.New("store down"), dlq.ReasonStore))

	rr := httptest.NewRecorder()
	NewHealthHandler(nil, WithDLQ(q)).Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		DLQ dlq.Stats `json:"dlq"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.DLQ.Enabled)
	assert.Equal(t, "file", resp.DLQ.Backend)
	assert.EqualValues(t, 1, resp.DLQ.Pending)
}
