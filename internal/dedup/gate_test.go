package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

type fakeLookup struct {
	keys  map[models.DedupKey]bool
	err   error
	calls int
}

func (f *fakeLookup) Exists(_ context.Context, key models.DedupKey) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.keys[key], nil
}

func alertRecord(key models.DedupKey) *models.NormalizedRecord {
	return &models.NormalizedRecord{Source: models.RecordAlert, DedupKey: key, Alert: &models.Alert{}}
}

func TestGate_Admit(t *testing.T) {
	stored := models.DedupKey{SignatureID: "2001219", Timestamp: "t1", SrcIP: "10.0.0.5", DstIP: "192.168.1.10"}
	lookup := &fakeLookup{keys: map[models.DedupKey]bool{stored: true}}
	gate := NewGate(lookup, nil)
	ctx := context.Background()

	ok, err := gate.Admit(ctx, alertRecord(stored))
	require.NoError(t, err)
	assert.False(t, ok, "stored key must be rejected")

	other := stored
	other.Timestamp = "t2"
	ok, err = gate.Admit(ctx, alertRecord(other))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 2, lookup.calls)
}

func TestGate_IncompleteKeysBypassStore(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("must not be called")}
	gate := NewGate(lookup, nil)

	ok, err := gate.Admit(context.Background(), alertRecord(models.DedupKey{SignatureID: "1", SrcIP: "a", DstIP: "b"}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gate.Admit(context.Background(), &models.NormalizedRecord{Source: models.RecordReport, Report: &models.Report{}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, lookup.calls)
}

func TestGate_StoreError(t *testing.T) {
	boom := errors.New("connection refused")
	gate := NewGate(&fakeLookup{err: boom}, nil)

	ok, err := gate.Admit(context.Background(), alertRecord(models.DedupKey{SignatureID: "1", Timestamp: "t", SrcIP: "a", DstIP: "b"}))
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}
