package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
)

func TestOpenAlertRepository_Memory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Type: "memory"}}

	repo, err := OpenAlertRepository(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, ok := repo.(*MemoryAlertRepository)
	assert.True(t, ok)
}

func TestOpenAlertRepository_WithBreaker(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Type: "memory"},
		Breaker:  config.BreakerConfig{Enabled: true, FailureThreshold: 3},
	}

	repo, err := OpenAlertRepository(context.Background(), cfg, nil)
	require.NoError(t, err)
	b, ok := repo.(*BreakerAlertRepository)
	require.True(t, ok)
	assert.Equal(t, "closed", b.State())
	require.NoError(t, repo.Ping(context.Background()))
}

func TestOpenAlertRepository_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Type: "sqlite"}}

	_, err := OpenAlertRepository(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
