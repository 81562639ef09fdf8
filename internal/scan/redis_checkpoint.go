package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tensorplex-labs/climsips/internal/utils/redis"
)

const redisKeyPrefix = "climsips:ckpt"

// RedisCheckpointStore shares checkpoints between hosts through Redis.
type RedisCheckpointStore struct {
	client redis.RedisInterface
	ttl    time.Duration
}

// NewRedisCheckpointStore stores checkpoints without expiry unless ttl > 0.
func NewRedisCheckpointStore(client redis.RedisInterface, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, ttl: ttl}
}

func (s *RedisCheckpointStore) Key(key CheckpointKey) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", redisKeyPrefix, key.target(), key.M, formatWeight(key.Alpha), formatWeight(key.Beta))
}

func (s *RedisCheckpointStore) Exists(ctx context.Context, key CheckpointKey) (bool, error) {
	ok, err := s.client.Exists(ctx, s.Key(key))
	if err != nil {
		return false, fmt.Errorf("failed to check checkpoint %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisCheckpointStore) Load(ctx context.Context, key CheckpointKey) (Result, error) {
	raw, err := s.client.Get(ctx, s.Key(key))
	if err != nil {
		return Result{}, fmt.Errorf("failed to get checkpoint %s: %w", key, err)
	}
	if raw == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, key)
	}

	var r Result
	if err := sonic.UnmarshalString(raw, &r); err != nil {
		return Result{}, fmt.Errorf("failed to decode checkpoint %s: %w", key, err)
	}
	return r, nil
}

func (s *RedisCheckpointStore) Save(ctx context.Context, key CheckpointKey, r Result) error {
	raw, err := sonic.MarshalString(r)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.Key(key), raw, s.ttl); err != nil {
		return fmt.Errorf("failed to set checkpoint %s: %w", key, err)
	}
	return nil
}
