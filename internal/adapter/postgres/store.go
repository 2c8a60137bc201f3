package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/foodcart/internal/domain"
)

const (
	getQuery    = `SELECT value FROM kv_store WHERE key = $1`
	upsertQuery = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteQuery = `DELETE FROM kv_store WHERE key = $1`
)

// Store keeps key/value pairs in the kv_store table.
type Store struct {
	pool   *pgxpool.Pool
	prefix string
}

var _ domain.KeyValueStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &Store{pool: pool, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, getQuery, s.prefix+key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, upsertQuery, s.prefix+key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteQuery, s.prefix+key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
