package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Store is an ephemeral key/value store. Values are opaque blobs replaced
// whole; a ttl of zero means no expiry. Missing keys are reported with ok=false.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take reads and deletes key in one step.
	Take(ctx context.Context, key string) (val []byte, ok bool, err error)
}

type memItem struct {
	val     []byte
	expires time.Time
}

// MemoryStore is the in-process Store used when no Redis is configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[string]memItem
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryStore{clock: clk, items: make(map[string]memItem)}
}

func (m *MemoryStore) live(key string) (memItem, bool) {
	it, ok := m.items[key]
	if !ok {
		return memItem{}, false
	}
	if !it.expires.IsZero() && !m.clock.Now().Before(it.expires) {
		delete(m.items, key)
		return memItem{}, false
	}
	return it, true
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.val...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memItem{val: append([]byte(nil), val...)}
	if ttl > 0 {
		it.expires = m.clock.Now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryStore) Take(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	delete(m.items, key)
	return it.val, true, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.items {
		if _, ok := m.live(k); !ok {
			n++
		}
	}
	return n
}

// Prefixed namespaces every key of s, so several components can share one backend.
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefixed{s: s, prefix: prefix}
}

type prefixed struct {
	s      Store
	prefix string
}

func (p prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.s.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return p.s.Set(ctx, p.prefix+key, val, ttl)
}

func (p prefixed) Delete(ctx context.Context, key string) error {
	return p.s.Delete(ctx, p.prefix+key)
}

func (p prefixed) Take(ctx context.Context, key string) ([]byte, bool, error) {
	return p.s.Take(ctx, p.prefix+key)
}
