package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner evicts conversation contexts of idle users on a schedule. Active
// users are untouched because every processed message refreshes UpdatedAt; an
// evicted user re-enters through the start prompt and, having a stored
// profile, lands straight back in the main menu.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Run starts the eviction loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.ttl <= 0 || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("conversation cleaner stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	contexts, err := c.storage.GetAll(ctx)
	if err != nil {
		c.log.Error("conversation cleaner failed to list contexts", slog.Any("error", err))
		return
	}

	for _, conv := range contexts {
		if conv == nil || time.Since(conv.UpdatedAt) <= c.ttl {
			continue
		}

		if err := c.storage.Clear(ctx, conv.UserID); err != nil {
			c.log.Error("conversation cleaner failed to clear context",
				slog.Int64("user_id", conv.UserID), slog.Any("error", err))
			continue
		}

		c.log.Info("idle conversation context evicted", slog.Int64("user_id", conv.UserID))
	}
}
