package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/repository"
)

func alertEnvelope(line string) *models.RawEnvelope {
	return &models.RawEnvelope{Source: models.SourceFileTail, Body: []byte(line)}
}

func reportEnvelope(body string) *models.RawEnvelope {
	return &models.RawEnvelope{Source: models.SourceHTTP, Body: []byte(body)}
}

func eveAlert(sig int, ts, src, dst string, dstPort int) string {
	b, _ := json.Marshal(map[string]any{
		"timestamp":  ts,
		"event_type": "alert",
		"src_ip":     src,
		"src_port":   51544,
		"dest_ip":    dst,
		"dest_port":  dstPort,
		"alert":      map[string]any{"signature_id": sig, "signature": "ET SCAN"},
	})
	return string(b)
}

type fixture struct {
	pipeline *Pipeline
	alerts   *repository.MemoryAlertRepository
	reports  *repository.FileReportStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	alerts := repository.NewMemoryAlertRepository()
	reports := repository.NewFileReportStore(filepath.Join(t.TempDir(), "server_reports.json"), false, nil)
	return &fixture{
		pipeline: New(normalizer.Default(), alerts, reports, opts...),
		alerts:   alerts,
		reports:  reports,
	}
}

func TestProcess_AlertIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	line := eveAlert(2001219, "2025-03-14T09:26:53.589+0000", "10.0.0.5", "192.168.1.10", 22)

	res, err := f.pipeline.Process(ctx, alertEnvelope(line))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, res.Outcome)

	res, err = f.pipeline.Process(ctx, alertEnvelope(line))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	assert.Len(t, f.alerts.Alerts(), 1)
}

func TestProcess_AlertDistinctness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := eveAlert(2001219, "t1", "10.0.0.5", "192.168.1.10", 22)

	lines := []string{
		base,
		eveAlert(2001220, "t1", "10.0.0.5", "192.168.1.10", 22),
		eveAlert(2001219, "t2", "10.0.0.5", "192.168.1.10", 22),
		eveAlert(2001219, "t1", "10.0.0.6", "192.168.1.10", 22),
		eveAlert(2001219, "t1", "10.0.0.5", "192.168.1.11", 22),
	}
	for _, line := range lines {
		res, err := f.pipeline.Process(ctx, alertEnvelope(line))
		require.NoError(t, err)
		assert.Equal(t, OutcomeStored, res.Outcome, line)
	}

	// Ports are not part of the dedup key.
	res, err := f.pipeline.Process(ctx, alertEnvelope(eveAlert(2001219, "t1", "10.0.0.5", "192.168.1.10", 443)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	assert.Len(t, f.alerts.Alerts(), len(lines))
}

func TestProcess_IncompleteKeyBypassesDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lines := []string{
		`{"event_type":"alert","src_ip":"10.0.0.5","dest_ip":"10.0.0.9","timestamp":"t1"}`,
		`{"event_type":"alert","alert":{"signature_id":1},"timestamp":"t","src_ip":"","dest_ip":"b"}`,
	}

	for _, line := range lines {
		for i := 0; i < 2; i++ {
			res, err := f.pipeline.Process(ctx, alertEnvelope(line))
			require.NoError(t, err)
			assert.Equal(t, OutcomeStored, res.Outcome, line)
		}
	}
	assert.Len(t, f.alerts.Alerts(), 4)
}

func TestProcess_ReportsNeverDeduplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := `{"technical_report":{"title":"same"},"leadership_report":{}}`

	for i := 0; i < 2; i++ {
		res, err := f.pipeline.Process(ctx, reportEnvelope(body))
		require.NoError(t, err)
		assert.Equal(t, OutcomeStored, res.Outcome)
	}

	reports, err := f.reports.List(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestProcess_UnwrappedReportStoredAsInner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inner := `{"technical_report":{"title":"Brute force on ssh"},"leadership_report":{"title":"Login attack"}}`
	quoted, err := json.Marshal(inner)
	require.NoError(t, err)

	res, err := f.pipeline.Process(ctx, reportEnvelope(`{"body":{"log":`+string(quoted)+`}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeStored, res.Outcome)

	reports, err := f.reports.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Brute force on ssh", reports[0].Title())
	assert.Nil(t, reports[0].Extra, "wrapper keys must not leak into the stored report")
}

func TestProcess_Rejected(t *testing.T) {
	f := newFixture(t)

	res, err := f.pipeline.Process(context.Background(), reportEnvelope(`{"foo":1}`))
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)

	var verr *normalizer.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"foo"}, verr.ReceivedKeys)
}

type brokenAlerts struct {
	*repository.MemoryAlertRepository
}

func (brokenAlerts) Insert(context.Context, *models.Alert) (bool, error) {
	return false, errors.New("connection reset by peer")
}

func TestProcess_StorageFailureDropsToDLQ(t *testing.T) {
	queue, err := dlq.NewQueue(t.TempDir(), nil)
	require.NoError(t, err)

	p := New(normalizer.Default(), brokenAlerts{repository.NewMemoryAlertRepository()}, nil, WithDLQ(queue))
	ctx := context.Background()

	res, err := p.Process(ctx, alertEnvelope(eveAlert(1, "t", "a", "b", 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.Equal(t, OutcomeDropped, res.Outcome)

	// The next line is still processed.
	res, _ = p.Process(ctx, alertEnvelope(eveAlert(2, "t", "a", "b", 1)))
	assert.Equal(t, OutcomeDropped, res.Outcome)

	failed, err := queue.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, dlq.ReasonStore, failed[0].Reason)
	assert.Contains(t, failed[0].Error, "connection reset by peer")
}

func TestProcess_CreatedAtIsProcessingTime(t *testing.T) {
	now := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	alerts := repository.NewMemoryAlertRepository()
	p := New(normalizer.Default(normalizer.WithClock(func() time.Time { return now })), alerts, nil)

	_, err := p.Process(context.Background(), alertEnvelope(eveAlert(1, "2020-01-01T00:00:00Z", "a", "b", 1)))
	require.NoError(t, err)
	require.Len(t, alerts.Alerts(), 1)
	assert.Equal(t, now, alerts.Alerts()[0].CreatedAt)
}
