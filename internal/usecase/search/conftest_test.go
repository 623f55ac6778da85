package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
	"github.com/mixpeek/searchkit/internal/domain/identity"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	"github.com/mixpeek/searchkit/internal/repository/resultcache"
	"github.com/mixpeek/searchkit/internal/transport/sse"
)

// --- Mocks ---

type fakeTransport struct {
	mu            sync.Mutex
	streamFn      func(ctx context.Context, req request.Request) (Stream, error)
	bufferedFn    func(ctx context.Context, req request.Request) (outcome.Outcome, error)
	streamCalls   []request.Request
	bufferedCalls []request.Request
	cancels       int
}

func (f *fakeTransport) ExecuteStreaming(ctx context.Context, req request.Request) (Stream, error) {
	f.mu.Lock()
	f.streamCalls = append(f.streamCalls, req)
	fn := f.streamFn
	f.mu.Unlock()
	if fn == nil {
		return newFakeStream(ctx), nil
	}
	return fn(ctx, req)
}

func (f *fakeTransport) ExecuteBuffered(ctx context.Context, req request.Request) (outcome.Outcome, error) {
	f.mu.Lock()
	f.bufferedCalls = append(f.bufferedCalls, req)
	fn := f.bufferedFn
	f.mu.Unlock()
	if fn == nil {
		return outcome.Outcome{Results: []document.Document{}}, nil
	}
	return fn(ctx, req)
}

func (f *fakeTransport) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeTransport) calls() (streaming, buffered []request.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request.Request(nil), f.streamCalls...), append([]request.Request(nil), f.bufferedCalls...)
}

// fakeStream replays signals, then ends with err. When hold is set it blocks
// before the signal at holdAt until ctx is cancelled.
type fakeStream struct {
	ctx     context.Context
	signals []sse.Signal
	err     error
	holdAt  int
	hold    chan struct{}
	idx     int
	cur     sse.Signal
	closed  bool
}

func newFakeStream(ctx context.Context, signals ...sse.Signal) *fakeStream {
	return &fakeStream{ctx: ctx, signals: signals, holdAt: -1}
}

func (s *fakeStream) Next() bool {
	if s.idx == s.holdAt && s.hold != nil {
		close(s.hold)
		s.hold = nil
		<-s.ctx.Done()
	}
	if s.idx >= len(s.signals) {
		return false
	}
	s.cur = s.signals[s.idx]
	s.idx++
	return true
}

func (s *fakeStream) Signal() sse.Signal { return s.cur }

func (s *fakeStream) Err() error {
	if s.ctx.Err() != nil {
		return domain.ErrCancelled
	}
	return s.err
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// --- Helpers ---

func doc(id string) document.Document {
	return document.MustNew(map[string]any{"id": id, "title": "doc " + id})
}

func docs(ids ...string) []document.Document {
	out := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, doc(id))
	}
	return out
}

func ids(ds []document.Document) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID())
	}
	return out
}

func ev(e event.Event) sse.Signal {
	return sse.Signal{Kind: sse.KindEvent, Event: e}
}

func doneSignal() sse.Signal {
	return sse.Signal{Kind: sse.KindDone}
}

func newTestCache(t *testing.T, opts ...resultcache.Option) *resultcache.Cache {
	t.Helper()
	c, err := resultcache.NewMemory(64, opts...)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func newTestOrchestrator(t *testing.T, tr Transport, cache Cache, cfg Config) *Orchestrator {
	t.Helper()
	cfg.Identity = identity.Parse("test-retriever")
	if cfg.Debounce == 0 {
		cfg.Debounce = -1
	}
	o := New(tr, cache, cfg)
	t.Cleanup(o.Close)
	return o
}

func wait(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not finish")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
