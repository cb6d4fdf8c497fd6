package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/migrations"
)

// setupTestDatabase starts a PostgreSQL container and applies the bundled
// schema. Skipped with -short.
func setupTestDatabase(t *testing.T) *PostgresAlertRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("sentry_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(connStr))

	repo, err := NewPostgresAlertRepository(ctx, connStr, 4)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewPostgresAlertRepository_InvalidConnString(t *testing.T) {
	_, err := NewPostgresAlertRepository(context.Background(), "invalid://connection", 0)
	require.Error(t, err)
}

func TestPostgresAlertRepository_InsertAndExists(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	alert := testAlert("2001219", "2025-03-14T09:26:53.589+0000", "10.0.0.5", "192.168.1.10", 22)
	alert.CreatedAt = time.Now().UTC()

	exists, err := repo.Exists(ctx, alert.Key())
	require.NoError(t, err)
	assert.False(t, exists)

	inserted, err := repo.Insert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err = repo.Exists(ctx, alert.Key())
	require.NoError(t, err)
	assert.True(t, exists)

	inserted, err = repo.Insert(ctx, alert)
	require.NoError(t, err)
	assert.False(t, inserted, "unique index must reject the second row")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPostgresAlertRepository_NullKeysNeverConflict(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := testAlert("", "t1", "10.0.0.5", "10.0.0.9", 22)
		a.CreatedAt = time.Now().UTC()
		inserted, err := repo.Insert(ctx, a)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestPostgresAlertRepository_EmptyKeyPartsNeverConflict(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		a := testAlert("1", "t", "", "b", 80)
		a.SrcIP = strPtr("")
		a.CreatedAt = time.Now().UTC()
		require.False(t, a.Key().Complete())

		inserted, err := repo.Insert(ctx, a)
		require.NoError(t, err)
		assert.True(t, inserted, "insert %d", i+1)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestPostgresAlertRepository_ConcurrentDuplicates(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := testAlert("1", "t", "a", "b", 80)
			a.CreatedAt = time.Now().UTC()
			ok, err := repo.Insert(ctx, a)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
}
