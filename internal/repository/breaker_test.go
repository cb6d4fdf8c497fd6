package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

type failingRepository struct {
	*MemoryAlertRepository
	err   error
	calls int
}

func (r *failingRepository) Insert(ctx context.Context, alert *models.Alert) (bool, error) {
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	return r.MemoryAlertRepository.Insert(ctx, alert)
}

func TestBreakerAlertRepository_OpensAfterFailures(t *testing.T) {
	inner := &failingRepository{
		MemoryAlertRepository: NewMemoryAlertRepository(),
		err:                   storageError("insert alert", errors.New("connection refused")),
	}
	repo := NewBreakerAlertRepository(inner, BreakerSettings{
		Name:             "test-open",
		FailureThreshold: 2,
		MaxRequests:      1,
		Timeout:          time.Minute,
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.Insert(ctx, testAlert("1", "t", "a", "b", 1))
		require.ErrorIs(t, err, ErrStorage)
	}
	assert.Equal(t, "open", repo.State())

	_, err := repo.Insert(ctx, testAlert("1", "t", "a", "b", 1))
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the store")
}

func TestBreakerAlertRepository_PassesThrough(t *testing.T) {
	repo := NewBreakerAlertRepository(NewMemoryAlertRepository(), BreakerSettings{Name: "test-pass"}, nil)
	ctx := context.Background()

	alert := testAlert("1", "t", "a", "b", 1)
	inserted, err := repo.Insert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := repo.Exists(ctx, alert.Key())
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "closed", repo.State())
}
