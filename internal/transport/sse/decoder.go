// Package sse decodes the retriever's server-sent event stream into typed signals.
//
// A Decoder is single-pass and forward-only: it cannot be rewound or restarted,
// a new request needs a new Decoder.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
)

// Frame protocol constants.
const (
	FramePrefix  = "data: "
	DoneSentinel = "[DONE]"
)

// Kind classifies a decoded signal.
type Kind int

// Signal kinds.
const (
	KindEvent Kind = iota + 1
	KindAnswerChunk
	KindResults
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindAnswerChunk:
		return "answer_chunk"
	case KindResults:
		return "results"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Signal is one decoded frame. Exactly one payload field is set, per Kind.
type Signal struct {
	Kind      Kind
	Event     event.Event         // KindEvent
	Text      string              // KindAnswerChunk
	Documents []document.Document // KindResults
}

// SkipFunc observes dropped frames. err wraps domain.ErrDecodeSkipped.
type SkipFunc func(payload []byte, err error)

// Decoder reads SSE lines and yields signals.
type Decoder struct {
	src    io.Reader
	r      *bufio.Reader
	onSkip SkipFunc

	cur    Signal
	err    error
	done   bool
	closed bool
	mu     sync.Mutex
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSkipHandler installs an observer for dropped frames.
func WithSkipHandler(fn SkipFunc) Option {
	return func(d *Decoder) { d.onSkip = fn }
}

// NewDecoder wraps r. If r is an io.Closer, Close closes it.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{src: r, r: bufio.NewReaderSize(r, 32*1024)}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Next advances to the next signal. It returns false at the end of the
// stream, after the done sentinel, after Close, or on a read error (see Err).
func (d *Decoder) Next() bool {
	if d.done || d.isClosed() {
		return false
	}
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			// A trailing fragment without a newline is incomplete and never processed.
			d.done = true
			if !errors.Is(err, io.EOF) {
				d.err = fmt.Errorf("read stream: %w", err)
			}
			return false
		}
		sig, ok := d.parseLine(line)
		if !ok {
			continue
		}
		d.cur = sig
		if sig.Kind == KindDone {
			d.done = true
		}
		return true
	}
}

// Signal returns the current signal. Valid after Next returned true.
func (d *Decoder) Signal() Signal { return d.cur }

// Err returns the first non-EOF read error.
func (d *Decoder) Err() error { return d.err }

// Close stops decoding and closes the source when it is closable. Idempotent.
func (d *Decoder) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	if c, ok := d.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close stream: %w", err)
		}
	}
	return nil
}

func (d *Decoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Decoder) parseLine(line []byte) (Signal, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || !bytes.HasPrefix(trimmed, []byte(FramePrefix)) {
		return Signal{}, false
	}
	payload := trimmed[len(FramePrefix):]
	if string(payload) == DoneSentinel {
		return Signal{Kind: KindDone}, true
	}
	sig, err := Classify(payload)
	if err != nil {
		d.skip(payload, err)
		return Signal{}, false
	}
	return sig, true
}

func (d *Decoder) skip(payload []byte, err error) {
	if d.onSkip != nil {
		d.onSkip(payload, err)
	}
}

// probe detects the framing without committing to a shape.
type probe struct {
	EventType   *string         `json:"event_type"`
	AnswerChunk *string         `json:"answer_chunk"`
	Results     json.RawMessage `json:"results"`
	Documents   json.RawMessage `json:"documents"`
}

// Classify parses one frame payload. Errors wrap domain.ErrDecodeSkipped.
//
// Precedence: answer_chunk, then event_type (stage events carry documents too),
// then the legacy results/documents framing.
func Classify(payload []byte) (Signal, error) {
	var p probe
	if err := json.Unmarshal(payload, &p); err != nil {
		return Signal{}, fmt.Errorf("%w: %w", domain.ErrDecodeSkipped, err)
	}
	if p.AnswerChunk != nil && *p.AnswerChunk != "" {
		return Signal{Kind: KindAnswerChunk, Text: *p.AnswerChunk}, nil
	}
	if p.EventType != nil {
		var w event.Wire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Signal{}, fmt.Errorf("%w: %w", domain.ErrDecodeSkipped, err)
		}
		ev, err := w.Decode()
		if err != nil {
			return Signal{}, fmt.Errorf("%w: %w", domain.ErrDecodeSkipped, err)
		}
		return Signal{Kind: KindEvent, Event: ev}, nil
	}
	raw := p.Results
	if isNull(raw) {
		raw = p.Documents
	}
	if !isNull(raw) {
		var docs []document.Document
		if err := json.Unmarshal(raw, &docs); err != nil {
			return Signal{}, fmt.Errorf("%w: results: %w", domain.ErrDecodeSkipped, err)
		}
		if docs == nil {
			docs = []document.Document{}
		}
		return Signal{Kind: KindResults, Documents: docs}, nil
	}
	return Signal{}, fmt.Errorf("%w: unrecognized frame", domain.ErrDecodeSkipped)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
