package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// PostgresAlertRepository implements AlertRepository using PostgreSQL.
type PostgresAlertRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAlertRepository creates a new PostgreSQL alert repository.
func NewPostgresAlertRepository(ctx context.Context, connString string, maxConns int32) (*PostgresAlertRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAlertRepository{pool: pool}, nil
}

// Exists checks for a stored alert with the same four key columns.
func (r *PostgresAlertRepository) Exists(ctx context.Context, key models.DedupKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM suricata_logs
			WHERE alert_id = $1 AND "timestamp" = $2 AND src_ip = $3 AND dst_ip = $4
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, key.SignatureID, key.Timestamp, key.SrcIP, key.DstIP).Scan(&exists)
	if err != nil {
		return false, storageError("check alert", err)
	}
	return exists, nil
}

// Insert writes one alert row. The partial unique index on the key columns
// turns a concurrent duplicate into a no-op; NULL or empty key parts never
// conflict.
func (r *PostgresAlertRepository) Insert(ctx context.Context, alert *models.Alert) (bool, error) {
	query := `
		INSERT INTO suricata_logs
			(alert_id, "timestamp", src_ip, dst_ip, src_port, dst_port, raw_json, incident_group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (alert_id, "timestamp", src_ip, dst_ip)
			WHERE alert_id <> '' AND "timestamp" <> '' AND src_ip <> '' AND dst_ip <> ''
			DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		alert.AlertID, alert.Timestamp, alert.SrcIP, alert.DstIP,
		alert.SrcPort, alert.DstPort, string(alert.RawJSON),
		alert.IncidentGroupID, alert.CreatedAt,
	)
	if err != nil {
		return false, storageError("insert alert", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of stored alerts.
func (r *PostgresAlertRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM suricata_logs").Scan(&n); err != nil {
		return 0, storageError("count alerts", err)
	}
	return n, nil
}

// Ping checks the pool can reach the database.
func (r *PostgresAlertRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Close closes the database connection pool.
func (r *PostgresAlertRepository) Close() error {
	r.pool.Close()
	return nil
}
