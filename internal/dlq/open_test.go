package dlq

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
)

func TestOpen_Disabled(t *testing.T) {
	b, err := Open(context.Background(), config.DLQConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestOpen_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dlq")
	b, err := Open(context.Background(), config.DLQConfig{Enabled: true, Backend: "file", BasePath: dir}, nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	defer b.Close()

	assert.Equal(t, "file", b.Stats(context.Background()).Backend)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.DLQConfig{Enabled: true, Backend: "kafka"}, nil)
	assert.Error(t, err)
}

func TestOpen_JetStreamUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	_, err := Open(context.Background(), config.DLQConfig{Enabled: true, Backend: "jetstream", NatsURL: "nats://127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
