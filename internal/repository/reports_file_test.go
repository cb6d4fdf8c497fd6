package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

func testReport(id int64, title string) *models.Report {
	return &models.Report{
		ID:               id,
		ReceivedAt:       "Fri Mar 14 09:26:53 2025",
		TechnicalReport:  json.RawMessage(`{"title":"` + title + `"}`),
		LeadershipReport: json.RawMessage(`{}`),
	}
}

func TestFileReportStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_reports.json")
	store := NewFileReportStore(path, false, nil)

	reports, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoFileExists(t, path)
}

func TestFileReportStore_Seed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_reports.json")
	store := NewFileReportStore(path, true, nil)

	reports, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.EqualValues(t, 1700000001, reports[0].ID)
	assert.Equal(t, "SQL Injection Attack Detected", reports[0].Title())
	assert.FileExists(t, path)
}

func TestFileReportStore_AppendPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_reports.json")
	store := NewFileReportStore(path, false, nil)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Append(ctx, testReport(i, "report")))
	}

	reports, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 5)
	for i, r := range reports {
		assert.EqualValues(t, i+1, r.ID)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n    {"), "collection is written with 4-space indent")
}

func TestFileReportStore_PassthroughSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_reports.json")
	store := NewFileReportStore(path, false, nil)
	ctx := context.Background()

	r := testReport(7, "extra")
	r.TechnicalReport = json.RawMessage(`{"title":"extra","mitre":["T1110"]}`)
	r.Extra = map[string]json.RawMessage{"ticket": json.RawMessage(`"INC-1"`)}
	require.NoError(t, store.Append(ctx, r))

	reports, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.JSONEq(t, `{"title":"extra","mitre":["T1110"]}`, string(reports[0].TechnicalReport))
	assert.JSONEq(t, `"INC-1"`, string(reports[0].Extra["ticket"]))
}

func TestFileReportStore_CorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server_reports.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewFileReportStore(path, true, nil)
	ctx := context.Background()

	reports, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	require.NoError(t, store.Append(ctx, testReport(1, "after corruption")))

	reports, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "after corruption", reports[0].Title())

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	kept, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))
}

func TestFileReportStore_CancelledContext(t *testing.T) {
	store := NewFileReportStore(filepath.Join(t.TempDir(), "r.json"), false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Append(ctx, testReport(1, "x")), context.Canceled)
}
