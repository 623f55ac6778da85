package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/identity"
	"github.com/mixpeek/searchkit/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
)

// Request is a validated search invocation. Not retained after completion.
type Request struct {
	query     string
	limit     int
	filters   filter.Inputs
	streaming bool
}

// New validates and normalizes search parameters. The query is trimmed.
func New(query string, limit int, filters filter.Inputs, streaming bool) (Request, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(q) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if limit < 1 {
		return Request{}, fmt.Errorf("%w: limit must be >= 1, got %d", domain.ErrInvalidRequest, limit)
	}
	return Request{query: q, limit: limit, filters: filters, streaming: streaming}, nil
}

// Query returns the normalized query text.
func (r Request) Query() string { return r.query }

// Limit returns the result limit.
func (r Request) Limit() int { return r.limit }

// Filters returns the filter inputs.
func (r Request) Filters() filter.Inputs { return r.filters }

// Streaming reports whether the caller asked for a streaming execution.
func (r Request) Streaming() bool { return r.streaming }

// WithStreaming returns a copy with the streaming flag set.
func (r Request) WithStreaming(on bool) Request {
	r.streaming = on
	return r
}

// Signature is the cache key for (identity, query, limit, filters), encoded
// as a JSON array so no component can bleed into another.
// The streaming flag is not part of it: both modes finalize to the same outcome.
func (r Request) Signature(id identity.Identity) (string, error) {
	parts := []any{id.Value(), r.query, r.limit}
	canon, err := r.filters.Canonical()
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}
	if canon != "" {
		parts = append(parts, json.RawMessage(canon))
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}
	return string(b), nil
}
