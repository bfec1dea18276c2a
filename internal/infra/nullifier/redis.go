package nullifier

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nullifier:"

// RedisStore tracks consumed nullifiers shared across gateway instances.
// Keys are written without expiry: a consumed nullifier is permanently
// unusable.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Used(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Consume(ctx context.Context, key string) error {
	return s.client.Set(ctx, keyPrefix+key, "1", 0).Err()
}
