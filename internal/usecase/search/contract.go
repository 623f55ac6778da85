package search

import (
	"context"

	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	"github.com/mixpeek/searchkit/internal/transport/retriever"
	"github.com/mixpeek/searchkit/internal/transport/sse"
)

// Transport issues retriever calls. It owns one logical request at a time:
// starting a call cancels the previous one.
type Transport interface {
	ExecuteBuffered(ctx context.Context, req request.Request) (outcome.Outcome, error)
	ExecuteStreaming(ctx context.Context, req request.Request) (Stream, error)
	Cancel()
}

// Stream is a forward-only sequence of decoded signals.
type Stream interface {
	Next() bool
	Signal() sse.Signal
	Err() error
	Close() error
}

// Cache stores finalized outcomes by request signature.
type Cache interface {
	Sweep(ctx context.Context) int
	Get(ctx context.Context, signature string) (outcome.Outcome, bool)
	Put(ctx context.Context, signature string, o outcome.Outcome)
}

// FromRetriever adapts a retriever client to Transport.
func FromRetriever(c *retriever.Client) Transport {
	return retrieverTransport{c}
}

type retrieverTransport struct {
	*retriever.Client
}

func (t retrieverTransport) ExecuteStreaming(ctx context.Context, req request.Request) (Stream, error) {
	s, err := t.Client.ExecuteStreaming(ctx, req)
	if err != nil {
		return nil, err
	}
	return s, nil
}
