// Package menu maintains a time-bounded, validated snapshot of the item
// catalog with a degrading fallback chain: store, stale copy, hardcoded.
package menu

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalkhq/tabletalk/ttk/config"
	ports "github.com/tabletalkhq/tabletalk/ttk/engine/ports"
)

// Cache is one immutable refresh cycle of the catalog.
type Cache struct {
	Items     []ports.MenuItem
	FetchedAt time.Time
	Source    string // "store" | "fallback used" | "hardcoded"

	byID map[string]int
}

// NewCache builds a cache snapshot over the given items.
func NewCache(items []ports.MenuItem, source string, fetchedAt time.Time) *Cache {
	byID := make(map[string]int, len(items))
	for i, item := range items {
		if _, dup := byID[item.ID]; !dup {
			byID[item.ID] = i
		}
	}
	return &Cache{
		Items:     items,
		FetchedAt: fetchedAt,
		Source:    source,
		byID:      byID,
	}
}

// Get returns the item with the given id.
func (c *Cache) Get(id string) (ports.MenuItem, bool) {
	if c == nil {
		return ports.MenuItem{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return ports.MenuItem{}, false
	}
	return c.Items[i], true
}

// Len reports the item count.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Age reports how old the snapshot is.
func (c *Cache) Age(now time.Time) time.Duration {
	if c == nil {
		return 1<<63 - 1
	}
	return now.Sub(c.FetchedAt)
}

// Manager refreshes the cache from a menu source. Refresh never fails:
// it degrades through the stale copy down to the hardcoded catalog.
type Manager struct {
	source  ports.MenuSource
	cfg     config.MenuConfig
	logger  zerolog.Logger
	current atomic.Pointer[Cache]
}

// NewManager creates a cache manager over the given source.
func NewManager(source ports.MenuSource, cfg config.MenuConfig, logger zerolog.Logger) *Manager {
	if cfg.Freshness <= 0 {
		cfg.Freshness = 10 * time.Minute
	}
	if cfg.MinItems <= 0 {
		cfg.MinItems = 5
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 500
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	return &Manager{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "menu").Logger(),
	}
}

// Current returns a usable cache, refreshing the shared snapshot when needed.
// Concurrent callers may briefly race to rebuild; both results are valid and
// the last store wins, which is harmless for a read-mostly catalog.
func (m *Manager) Current(ctx context.Context) *Cache {
	existing := m.current.Load()
	next := m.Refresh(ctx, existing)
	if next != existing {
		m.current.Store(next)
	}
	return next
}

// Refresh returns the existing cache if fresh and valid; otherwise it reloads
// from the source with retries, falls back to the stale copy, and as a last
// resort returns the hardcoded catalog. It never returns nil.
func (m *Manager) Refresh(ctx context.Context, existing *Cache) *Cache {
	if existing != nil && m.fresh(existing) && m.Validate(existing) {
		return existing
	}

	for attempt := 1; attempt <= m.cfg.RetryAttempts; attempt++ {
		items, err := m.source.FetchItems(ctx)
		if err == nil {
			cache := NewCache(tagItems(items, ports.MenuSourceStore), ports.MenuSourceStore, time.Now())
			if m.Validate(cache) {
				m.logger.Debug().Int("items", cache.Len()).Int("attempt", attempt).Msg("menu refreshed from store")
				return cache
			}
			m.logger.Warn().Int("items", cache.Len()).Int("attempt", attempt).Msg("store returned an invalid menu")
		} else {
			m.logger.Warn().Err(err).Int("attempt", attempt).Msg("menu fetch failed")
		}

		if attempt < m.cfg.RetryAttempts {
			select {
			case <-ctx.Done():
				return m.degrade(existing)
			case <-time.After(m.cfg.RetryDelay):
			}
		}
	}

	return m.degrade(existing)
}

// degrade picks the stale copy when one exists, else the hardcoded catalog.
func (m *Manager) degrade(existing *Cache) *Cache {
	if existing != nil && existing.Len() > 0 {
		m.logger.Warn().
			Int("items", existing.Len()).
			Dur("age", existing.Age(time.Now())).
			Msg("menu store unreachable, serving stale cache")
		return NewCache(tagItems(existing.Items, ports.MenuSourceFallback), ports.MenuSourceFallback, existing.FetchedAt)
	}

	m.logger.Error().Msg("no cached menu available, serving hardcoded catalog")
	return NewCache(hardcodedItems(), ports.MenuSourceHardcoded, time.Now())
}

// Validate checks entry fields, id uniqueness, and the item count bounds.
func (m *Manager) Validate(cache *Cache) bool {
	if cache == nil {
		return false
	}
	if cache.Len() < m.cfg.MinItems || cache.Len() > m.cfg.MaxItems {
		return false
	}

	seen := make(map[string]struct{}, cache.Len())
	for _, item := range cache.Items {
		if item.ID == "" || item.Name == "" || item.PriceCents < 0 {
			return false
		}
		if _, dup := seen[item.ID]; dup {
			return false
		}
		seen[item.ID] = struct{}{}
	}
	return true
}

func (m *Manager) fresh(cache *Cache) bool {
	return cache.Age(time.Now()) < m.cfg.Freshness && cache.Len() >= m.cfg.MinItems
}

func tagItems(items []ports.MenuItem, source string) []ports.MenuItem {
	tagged := make([]ports.MenuItem, len(items))
	copy(tagged, items)
	for i := range tagged {
		tagged[i].Source = source
	}
	return tagged
}
