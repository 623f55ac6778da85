// Package resultcache holds finalized search outcomes keyed by request signature.
// Staleness is checked lazily on access; there is no background timer.
package resultcache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
)

// DefaultTTL is how long an outcome stays fresh.
const DefaultTTL = 5 * time.Minute

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for backend failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCounter sets a counter vec with label "result" (hit/miss/expired).
func WithCounter(cv *prometheus.CounterVec) Option {
	return func(c *Cache) { c.cacheTotal = cv }
}

// Cache is shared by every searcher of a client. Safe for concurrent use.
// Backend failures are logged and degrade to a miss.
type Cache struct {
	mu         sync.Mutex
	backend    Backend
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	cacheTotal *prometheus.CounterVec
}

// New creates a cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewMemory creates a cache over a fresh in-memory backend.
func NewMemory(maxEntries int, opts ...Option) (*Cache, error) {
	b, err := NewMemoryBackend(maxEntries)
	if err != nil {
		return nil, err
	}
	return New(b, opts...), nil
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the outcome stored under signature. Stale entries are removed
// and reported as absent. The returned outcome is a private copy.
func (c *Cache) Get(ctx context.Context, signature string) (outcome.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(signature)
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.logger.Warn("result cache load failed", zap.Error(err))
		c.inc("miss")
		return outcome.Outcome{}, false
	}
	if !ok {
		c.inc("miss")
		return outcome.Outcome{}, false
	}
	if e.staleAt(c.now(), c.ttl) {
		c.inc("expired")
		c.delete(ctx, key)
		return outcome.Outcome{}, false
	}
	c.inc("hit")
	return e.Outcome.Clone(), true
}

// Put stores a copy of o under signature, overwriting any previous entry.
func (c *Cache) Put(ctx context.Context, signature string, o outcome.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{Outcome: o.Clone(), StoredAt: c.now()}
	if err := c.backend.Store(ctx, Key(signature), e, c.ttl); err != nil {
		c.logger.Warn("result cache store failed", zap.Error(err))
	}
}

// Sweep removes every stale entry and returns how many were removed.
// Backends with native expiry are not scanned.
func (c *Cache) Sweep(ctx context.Context) int {
	if ne, ok := c.backend.(nativeExpirer); ok && ne.NativeTTL() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx)
	if err != nil {
		c.logger.Warn("result cache sweep failed", zap.Error(err))
		return 0
	}
	now := c.now()
	removed := 0
	for _, key := range keys {
		e, ok, err := c.backend.Load(ctx, key)
		if err != nil || !ok {
			continue
		}
		if e.staleAt(now, c.ttl) {
			c.delete(ctx, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx)
	if err != nil {
		c.logger.Warn("result cache len failed", zap.Error(err))
		return 0
	}
	return len(keys)
}

// Purge removes every entry.
func (c *Cache) Purge(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx)
	if err != nil {
		c.logger.Warn("result cache purge failed", zap.Error(err))
		return
	}
	for _, key := range keys {
		c.delete(ctx, key)
	}
}

func (c *Cache) delete(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("result cache delete failed", zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
