package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// KVStore implements domain.KVStore over the market_state table. One row per
// storage slot; retain_until is the retention horizon that ExtendLifetime
// pushes out.
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore creates a KVStore backed by the given connection pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Get returns the value stored under key, or domain.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key domain.StorageKey) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM market_state WHERE key = $1",
		key.Encode(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return value, nil
}

// Set writes value under key, overwriting any previous value.
func (s *KVStore) Set(ctx context.Context, key domain.StorageKey, value []byte) error {
	const query = `
		INSERT INTO market_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key.Encode(), value); err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

// ExtendLifetime pushes out the entry's retention horizon to at least
// now+ttl. The horizon never moves backward. Missing entries are a no-op.
func (s *KVStore) ExtendLifetime(ctx context.Context, key domain.StorageKey, ttl time.Duration) error {
	const query = `
		UPDATE market_state
		SET retain_until = GREATEST(COALESCE(retain_until, NOW()), NOW() + make_interval(secs => $2))
		WHERE key = $1`

	if _, err := s.pool.Exec(ctx, query, key.Encode(), ttl.Seconds()); err != nil {
		return fmt.Errorf("postgres: extend lifetime %s: %w", key, err)
	}
	return nil
}

// ListTerminalItems returns every stored item in a terminal state (sold or
// unlisted), ordered by id. Used by the archiver; never part of a lifecycle
// invocation.
func (s *KVStore) ListTerminalItems(ctx context.Context) ([]domain.Item, error) {
	const query = `
		SELECT value FROM market_state
		WHERE key LIKE 'item:%' AND value ->> 'status' IN ('sold', 'unlisted')
		ORDER BY (value ->> 'id')::bigint`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("postgres: scan terminal item: %w", err)
		}
		var item domain.Item
		if err := json.Unmarshal(value, &item); err != nil {
			return nil, fmt.Errorf("postgres: decode terminal item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list terminal items: %w", err)
	}
	return items, nil
}

// Compile-time interface check.
var _ domain.KVStore = (*KVStore)(nil)
