package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/mixpeek/searchkit/internal/db"
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn  func(ctx context.Context, key string) error
	scanFn func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockKVStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func sampleOutcome(t *testing.T, titles ...string) outcome.Outcome {
	t.Helper()
	docs := make([]document.Document, 0, len(titles))
	for i, title := range titles {
		d, err := document.New(map[string]any{"id": i + 1, "title": title})
		if err != nil {
			t.Fatalf("new document: %v", err)
		}
		docs = append(docs, d)
	}
	return outcome.Outcome{Results: docs}
}
