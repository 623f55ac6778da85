package resultcache

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/mixpeek/searchkit/internal/db"
	"github.com/mixpeek/searchkit/internal/db/redis"
)

func TestMemoryBackend_EvictsLeastRecentlyUsed(t *testing.T) {
	b, err := NewMemoryBackend(2)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx := context.Background()

	_ = b.Store(ctx, "a", Entry{}, time.Minute)
	_ = b.Store(ctx, "b", Entry{}, time.Minute)
	_, _, _ = b.Load(ctx, "a")
	_ = b.Store(ctx, "c", Entry{}, time.Minute)

	if _, ok, _ := b.Load(ctx, "b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok, _ := b.Load(ctx, "a"); !ok {
		t.Error("expected a to survive")
	}
}

func TestRedisBackend_StoreUsesPrefixAndTTL(t *testing.T) {
	var gotKey string
	var gotTTL time.Duration
	var gotValue []byte
	ms := &mockKVStore{
		setFn: func(_ context.Context, key string, value []byte, ttl time.Duration) error {
			gotKey, gotValue, gotTTL = key, value, ttl
			return nil
		},
	}
	b := NewRedisBackend(ms, "test:")
	stored := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := b.Store(context.Background(), "k1", Entry{Outcome: sampleOutcome(t, "a"), StoredAt: stored}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test:k1" {
		t.Errorf("expected test:k1, got %s", gotKey)
	}
	if gotTTL != time.Minute {
		t.Errorf("expected 1m TTL, got %v", gotTTL)
	}
	var decoded Entry
	if err := json.Unmarshal(gotValue, &decoded); err != nil {
		t.Fatalf("stored value is not an entry: %v", err)
	}
	if !decoded.StoredAt.Equal(stored) || decoded.Outcome.Results[0].Title() != "a" {
		t.Errorf("unexpected entry: %+v", decoded)
	}
}

func TestRedisBackend_LoadMissing(t *testing.T) {
	b := NewRedisBackend(&mockKVStore{}, "")
	_, ok, err := b.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected absent")
	}
}

func TestRedisBackend_LoadCorrupt(t *testing.T) {
	ms := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte("{not json"), nil
		},
	}
	b := NewRedisBackend(ms, "")
	if _, _, err := b.Load(context.Background(), "k"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRedisBackend_KeysStripsPrefix(t *testing.T) {
	ms := &mockKVStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "p:*" {
				t.Errorf("unexpected pattern %q", pattern)
			}
			return []string{"p:one", "p:two"}, nil
		},
	}
	b := NewRedisBackend(ms, "p:")
	keys, err := b.Keys(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(keys, ",") != "one,two" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestCache_RedisRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	store := redis.NewStoreForTest(client)
	clock := newFakeClock()
	c := New(NewRedisBackend(store, "sk:"), WithClock(clock.Now))
	key := "sk:" + Key("sig")

	var payload string
	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if cmd[0] != "SET" || cmd[1] != key {
				return false
			}
			payload = cmd[2]
			return true
		})).
		Return(mock.Result(mock.RedisString("OK")))

	c.Put(context.Background(), "sig", sampleOutcome(t, "shared"))

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", key)).
		Return(mock.Result(mock.RedisBlobString(payload)))

	got, ok := c.Get(context.Background(), "sig")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Results[0].Title() != "shared" {
		t.Errorf("unexpected title %q", got.Results[0].Title())
	}
}

func TestRedisBackend_SweepSkipsScan(t *testing.T) {
	var scans, gets int
	ms := &mockKVStore{
		scanFn: func(_ context.Context, _ string) ([]string, error) {
			scans++
			return []string{"searchkit:results:a", "searchkit:results:b"}, nil
		},
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			gets++
			return nil, db.ErrKeyNotFound
		},
	}
	c := New(NewRedisBackend(ms, ""))

	if removed := c.Sweep(context.Background()); removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
	if scans != 0 || gets != 0 {
		t.Errorf("sweep over native expiry: scans=%d gets=%d, want 0/0", scans, gets)
	}

	// Lookups still load lazily.
	if _, ok := c.Get(context.Background(), "sig"); ok {
		t.Error("expected miss")
	}
	if gets != 1 {
		t.Errorf("expected one GET for a lookup, got %d", gets)
	}
}
