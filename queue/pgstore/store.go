package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helixdesk/realtime-go/queue"
)

const schema = `
CREATE TABLE IF NOT EXISTS realtime_outbox (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    data       JSONB,
    request_id TEXT NOT NULL DEFAULT '',
    queued_at  TIMESTAMPTZ NOT NULL,
    attempts   INT NOT NULL DEFAULT 0,
    priority   INT NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ
)`

// Store implements queue.Store on a Postgres pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a store on an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Connect opens a pool from a connection string and verifies it.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Ensure creates the outbox table if it does not exist.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

// Save replaces the persisted outbox with the snapshot in one transaction.
func (s *Store) Save(ctx context.Context, msgs []queue.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin outbox save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM realtime_outbox`); err != nil {
		return fmt.Errorf("clear outbox: %w", err)
	}

	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(
			`INSERT INTO realtime_outbox (id, type, data, request_id, queued_at, attempts, priority, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.Type, m.Data, m.RequestID, m.QueuedAt, m.Attempts, m.Priority, nullableTime(m.ExpiresAt),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range msgs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert outbox row: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close outbox batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Load returns the persisted outbox in drain order.
func (s *Store) Load(ctx context.Context) ([]queue.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, data, request_id, queued_at, attempts, priority, expires_at
		 FROM realtime_outbox
		 ORDER BY priority DESC, queued_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load outbox: %w", err)
	}
	defer rows.Close()

	var msgs []queue.Message
	for rows.Next() {
		var m queue.Message
		var expiresAt *time.Time
		if err := rows.Scan(&m.ID, &m.Type, &m.Data, &m.RequestID, &m.QueuedAt, &m.Attempts, &m.Priority, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if expiresAt != nil {
			m.ExpiresAt = *expiresAt
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return msgs, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
