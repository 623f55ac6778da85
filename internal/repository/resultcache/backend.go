package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mixpeek/searchkit/internal/db"
)

// DefaultMaxEntries caps the in-memory backend.
const DefaultMaxEntries = 1024

// DefaultKeyPrefix namespaces shared cache entries in Redis.
const DefaultKeyPrefix = "searchkit:results:"

// Backend stores entries under digest keys (see Key).
type Backend interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// nativeExpirer is implemented by backends that expire entries on their own.
// Sweep skips them.
type nativeExpirer interface {
	NativeTTL() bool
}

// MemoryBackend keeps entries in a process-local LRU.
type MemoryBackend struct {
	entries *lru.Cache[string, Entry]
}

// NewMemoryBackend creates an LRU-backed store holding at most maxEntries.
func NewMemoryBackend(maxEntries int) (*MemoryBackend, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryBackend{entries: c}, nil
}

// Load returns the entry for key.
func (m *MemoryBackend) Load(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.entries.Get(key)
	return e, ok, nil
}

// Store overwrites the entry for key. TTL is enforced by Cache.
func (m *MemoryBackend) Store(_ context.Context, key string, e Entry, _ time.Duration) error {
	m.entries.Add(key, e)
	return nil
}

// Delete removes key.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

// Keys lists stored keys, oldest first.
func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	return m.entries.Keys(), nil
}

// kvStore is the consumer interface for the Redis backend (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RedisBackend shares entries between processes through a key-value store.
// Entries are written with a native expiry equal to the cache TTL.
type RedisBackend struct {
	store  kvStore
	prefix string
}

// NewRedisBackend creates a backend over s. An empty prefix uses DefaultKeyPrefix.
func NewRedisBackend(s kvStore, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisBackend{store: s, prefix: prefix}
}

// NativeTTL reports that Redis expires entries itself (SET PX).
func (r *RedisBackend) NativeTTL() bool { return true }

// Load fetches and decodes the entry for key.
func (r *RedisBackend) Load(ctx context.Context, key string) (Entry, bool, error) {
	data, err := r.store.Get(ctx, r.prefix+key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("load entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry: %w", err)
	}
	return e, true, nil
}

// Store encodes and writes the entry with a native expiry.
func (r *RedisBackend) Store(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.prefix+key, data, ttl); err != nil {
		return fmt.Errorf("store entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.store.Del(ctx, r.prefix+key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Keys scans the prefix and returns keys without it.
func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	raw, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, r.prefix))
	}
	return keys, nil
}
