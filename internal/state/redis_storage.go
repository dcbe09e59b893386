package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	convKeyPattern     = "conv:state:%d"
	convScanPattern    = "conv:state:*"
	convScanBatchCount = 100
)

// RedisStorage persists conversation contexts in Redis. Optional backend for
// multi-instance deployments; the default is MemoryStorage.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStorage{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the stored context or ErrContextNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, userID int64) (*Context, error) {
	data, err := s.client.Get(ctx, convKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrContextNotFound
		}

		s.log.Error("failed to get conversation context from redis", "user_id", userID, "error", err)
		return nil, err
	}

	var conv Context
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		s.log.Error("failed to decode conversation context", "user_id", userID, "error", err)
		return nil, err
	}

	return &conv, nil
}

// Set saves the provided context with the configured TTL.
func (s *RedisStorage) Set(ctx context.Context, userID int64, conv *Context) error {
	conv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(conv)
	if err != nil {
		s.log.Error("failed to encode conversation context", "user_id", userID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, convKey(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save conversation context in redis", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// Clear removes the stored context for the given user.
func (s *RedisStorage) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, convKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear conversation context", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// GetAll retrieves every stored context by scanning Redis keys.
func (s *RedisStorage) GetAll(ctx context.Context) ([]*Context, error) {
	var (
		cursor uint64
		result []*Context
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, convScanPattern, convScanBatchCount).Result()
		if err != nil {
			s.log.Error("failed to scan conversation contexts", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch conversation context", "key", key, "error", err)
				return nil, err
			}

			var conv Context
			if err := json.Unmarshal([]byte(data), &conv); err != nil {
				s.log.Error("failed to decode conversation context", "key", key, "error", err)
				continue
			}

			copied := conv
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func convKey(userID int64) string {
	return fmt.Sprintf(convKeyPattern, userID)
}
