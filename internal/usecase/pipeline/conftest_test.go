package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
)

const testCorpusYAML = `
documents:
  - id: "1"
    title: Trail running shoes
    content: Lightweight shoes for trail running.
    category: footwear
  - id: "2"
    title: Leather boots
    content: Waterproof boots, great with running socks.
    category: footwear
  - id: "3"
    title: Running jacket
    content: A breathable jacket.
    category: apparel
  - id: "4"
    title: Camping stove
    content: Compact stove.
    category: gear
`

func testCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := ParseCorpus([]byte(testCorpusYAML))
	if err != nil {
		t.Fatalf("ParseCorpus: %v", err)
	}
	return c
}

// recordingSink captures events and chunks.
type recordingSink struct {
	mu      sync.Mutex
	events  []event.Event
	chunks  []string
	failOn  event.Kind
	failErr error
}

func (s *recordingSink) Event(e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && e.Kind() == s.failOn {
		return s.failErr
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) AnswerChunk(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, text)
	return nil
}

func (s *recordingSink) kinds() []event.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind()
	}
	return out
}

// mockAnswerer is a fn-field Answerer.
type mockAnswerer struct {
	fn func(ctx context.Context, query string, docs []document.Document, onChunk func(string) error) (string, error)
}

func (m *mockAnswerer) Answer(
	ctx context.Context, query string, docs []document.Document, onChunk func(string) error,
) (string, error) {
	return m.fn(ctx, query, docs, onChunk)
}

func ids(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

var errSink = errors.New("client gone")
