// Package profilecache provides a Redis read-through cache in front of the
// profile repository. Postgres remains the source of truth; the cache is
// skipped entirely when Redis is not configured.
package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/citymate-bot/citymate/internal/domain"
	"github.com/citymate-bot/citymate/internal/repository"
)

// Cache stores profile snapshots in Redis.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a profile cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches a cached profile if it exists; a miss returns (nil, nil).
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached profile: %w", err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}

	return &profile, nil
}

// Set stores the profile in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, userID int64, profile *domain.UserProfile, ttl time.Duration) error {
	if c == nil || c.client == nil || profile == nil {
		return nil
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached profile: %w", err)
	}

	return nil
}

// Invalidate removes the cached profile entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}

	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

// Repository decorates a ProfileRepository with the read-through cache. Cache
// failures are logged and ignored; correctness rests on the inner repository.
type Repository struct {
	inner repository.ProfileRepository
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

// Wrap returns a cached view of the inner repository.
func Wrap(inner repository.ProfileRepository, cache *Cache, ttl time.Duration, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}

	return &Repository{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// Get consults the cache before the inner repository and backfills on miss.
func (r *Repository) Get(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	cached, err := r.cache.Get(ctx, userID)
	if err != nil {
		r.log.Warn("profile cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	profile, err := r.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, userID, profile, r.ttl); err != nil {
		r.log.Warn("profile cache write failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return profile, nil
}

// Upsert writes through to the inner repository and invalidates the cache.
func (r *Repository) Upsert(ctx context.Context, userID int64, city string) error {
	if err := r.inner.Upsert(ctx, userID, city); err != nil {
		return err
	}

	if err := r.cache.Invalidate(ctx, userID); err != nil {
		r.log.Warn("profile cache invalidation failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return nil
}
