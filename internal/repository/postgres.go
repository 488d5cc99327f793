package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresKV persists ledgers in a kv_store table
type PostgresKV struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	owned  bool
}

// NewPostgresKV connects to databaseURL and ensures the schema exists
func NewPostgresKV(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresKV, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	kv, err := NewPostgresKVFromPool(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	kv.owned = true
	return kv, nil
}

// NewPostgresKVFromPool uses an existing pool; Close leaves the pool open
func NewPostgresKVFromPool(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresKV, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		logger.Error("failed to create kv_store table", zap.Error(err))
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	return &PostgresKV{db: pool, logger: logger}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		p.logger.Error("failed to read key", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		p.logger.Error("failed to write key", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `SELECT key FROM kv_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (p *PostgresKV) Close() error {
	if p.owned {
		p.db.Close()
	}
	return nil
}
