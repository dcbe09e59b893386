// Package catalog holds the read-only city catalog used by the events
// provider: display name (as typed by users) to internal city slug.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Loader fetches the full catalog from the events data source.
type Loader interface {
	LoadCatalog(ctx context.Context) (map[string]string, error)
}

// Catalog is a concurrency-safe city name to slug map, loaded once at startup
// and optionally refreshed periodically.
type Catalog struct {
	mu     sync.RWMutex
	cities map[string]string
	loader Loader
	log    *slog.Logger
}

// New constructs an empty Catalog; call Load before serving lookups.
func New(loader Loader, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}

	return &Catalog{
		cities: make(map[string]string),
		loader: loader,
		log:    log,
	}
}

// Load fetches the catalog and replaces the current map. A failed refresh
// keeps the previous map; a failed initial load leaves the catalog empty and
// should be treated as a startup failure by the caller.
func (c *Catalog) Load(ctx context.Context) error {
	cities, err := c.loader.LoadCatalog(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cities = cities
	c.mu.Unlock()

	c.log.Info("city catalog loaded", slog.Int("cities", len(cities)))
	return nil
}

// Slug returns the city slug for a display name, matched case-insensitively.
func (c *Catalog) Slug(city string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(city))

	c.mu.RLock()
	defer c.mu.RUnlock()

	slug, ok := c.cities[key]
	return slug, ok
}

// Size returns the number of known cities.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cities)
}

// Refresh reloads the catalog on the given interval until ctx is cancelled.
func (c *Catalog) Refresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("catalog refresh stopped")
			return
		case <-ticker.C:
			if err := c.Load(ctx); err != nil {
				c.log.Error("catalog refresh failed, keeping previous catalog", slog.Any("error", err))
			}
		}
	}
}
