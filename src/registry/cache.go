package registry

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/singleflight"
)

var logger = loggo.GetLogger("daoradar.registry")

const DefaultTTL = time.Hour

// Cache memoises the registry list for a TTL. Concurrent misses share one
// fetch; a failed fetch leaves the previous state untouched.
type Cache struct {
	src   Source
	ttl   time.Duration
	clock clock.Clock
	group singleflight.Group

	mu        sync.RWMutex
	entries   []Entry
	byID      map[string]Entry
	fetchedAt time.Time
}

func NewCache(src Source, ttl time.Duration, clk clock.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Cache{src: src, ttl: ttl, clock: clk}
}

type snapshot struct {
	entries []Entry
	byID    map[string]Entry
}

func (c *Cache) fresh() (snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entries == nil || c.clock.Now().Sub(c.fetchedAt) >= c.ttl {
		return snapshot{}, false
	}
	return snapshot{entries: c.entries, byID: c.byID}, true
}

func (c *Cache) load(ctx context.Context) (snapshot, error) {
	if s, ok := c.fresh(); ok {
		return s, nil
	}
	ch := c.group.DoChan("registry", func() (any, error) {
		// A flight that started just after another finished sees its result.
		if s, ok := c.fresh(); ok {
			return s, nil
		}
		// Shared by every waiter, so one caller's cancellation must not abort it.
		entries, err := c.src.Fetch(context.WithoutCancel(ctx))
		if err != nil {
			logger.Warningf("registry fetch: %v", err)
			return nil, err
		}
		byID := make(map[string]Entry, len(entries))
		for _, e := range entries {
			byID[e.RealmID] = e
		}
		c.mu.Lock()
		c.entries, c.byID, c.fetchedAt = entries, byID, c.clock.Now()
		c.mu.Unlock()
		logger.Debugf("registry refreshed: %d entries", len(entries))
		return snapshot{entries: entries, byID: byID}, nil
	})
	select {
	case <-ctx.Done():
		return snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return snapshot{}, res.Err
		}
		return res.Val.(snapshot), nil
	}
}

// GetAll returns the registry list. The slice is shared; do not modify it.
func (c *Cache) GetAll(ctx context.Context) ([]Entry, error) {
	s, err := c.load(ctx)
	return s.entries, err
}

// GetMap returns the registry keyed by realm id. The map is shared and
// replaced, never mutated, on refresh.
func (c *Cache) GetMap(ctx context.Context) (map[string]Entry, error) {
	s, err := c.load(ctx)
	return s.byID, err
}

// Invalidate forces the next call to refetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries, c.byID = nil, nil
	c.mu.Unlock()
}
