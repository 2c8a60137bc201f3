package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/foodcart/internal/domain"
)

// Store keeps each key as a plain Redis string under an optional namespace.
// Values never expire.
type Store struct {
	rdb    goredis.Cmdable
	prefix string
}

var _ domain.KeyValueStore = (*Store)(nil)

// NewStore prefixes every key with "<namespace>:" when namespace is set.
func NewStore(rdb goredis.Cmdable, namespace string) *Store {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
