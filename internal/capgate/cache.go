package capgate

import (
	"context"
	"sync"
	"time"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// DefaultTTL bounds how long a snapshot is reused. One run is well inside it.
const DefaultTTL = 6 * time.Hour

// Cache stores market cap snapshots by symbol. A miss or a backend failure
// both report ok=false; the gate then asks the source.
type Cache interface {
	Get(ctx context.Context, symbol string) (model.CapSnapshot, bool)
	Set(ctx context.Context, snap model.CapSnapshot)
}

type memEntry struct {
	snap      model.CapSnapshot
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryCache creates a cache whose entries expire ttl after Set.
// ttl <= 0 uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (model.CapSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok {
		return model.CapSnapshot{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, symbol)
		return model.CapSnapshot{}, false
	}
	return e.snap, true
}

func (c *MemoryCache) Set(_ context.Context, snap model.CapSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snap.Symbol] = memEntry{snap: snap, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
