// Package search coordinates debounced, cached, streaming searches against a
// retriever and exposes their progress as observable State.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/identity"
	"github.com/mixpeek/searchkit/internal/domain/search/filter"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	"github.com/mixpeek/searchkit/internal/transport/sse"
	"github.com/mixpeek/searchkit/internal/usecase/aggregate"
)

// DefaultDebounce is the quiet period before a search runs.
const DefaultDebounce = 300 * time.Millisecond

// Metrics are optional counters. Nil fields are skipped.
type Metrics struct {
	// FramesTotal is labelled by "kind" (signal kind or event type).
	FramesTotal    *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
}

// Config configures an Orchestrator.
type Config struct {
	Identity identity.Identity
	// Limit is the result limit; values below 1 use request.DefaultLimit.
	Limit   int
	Filters filter.Inputs
	// Streaming selects the streaming call with buffered fallback.
	// When false every search is a single buffered call.
	Streaming bool
	// Debounce of 0 means DefaultDebounce; a negative value disables the delay.
	Debounce time.Duration

	// Transform is applied to every visible result list, never to cached data.
	Transform        func([]document.Document) []document.Document
	OnSearch         func(query string)
	OnSearchExecuted func(query string)
	OnZeroResults    func(query string)
	// OnChange receives a snapshot after every state mutation, in order.
	// Deliveries are serialized with the search that produced them, so the
	// callback must not wait on a search (e.g. call SearchAndWait); it may
	// call Search.
	OnChange func(State)

	Logger  *zap.Logger
	Metrics Metrics
}

// Orchestrator runs at most one search at a time. A new Search supersedes the
// pending debounce timer and any in-flight call; superseded work never
// touches State. Safe for concurrent use.
type Orchestrator struct {
	transport Transport
	cache     Cache
	cfg       Config
	logger    *zap.Logger
	debounce  time.Duration

	base     context.Context
	stop     context.CancelFunc
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   State
	active  *token
	filters filter.Inputs
	closed  bool
}

// New creates an orchestrator over transport and a shared cache.
func New(transport Transport, cache Cache, cfg Config) *Orchestrator {
	if cfg.Limit < 1 {
		cfg.Limit = request.DefaultLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := cfg.Debounce
	switch {
	case debounce == 0:
		debounce = DefaultDebounce
	case debounce < 0:
		debounce = 0
	}
	base, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		transport: transport,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		debounce:  debounce,
		base:      base,
		stop:      stop,
		filters:   cfg.Filters,
		state:     State{Results: []document.Document{}},
	}
}

// State returns a snapshot of the observable state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// StateFor returns a snapshot and reports whether the invocation that
// returned done is still the latest one. It is false once a later Search or
// Close superseded it.
func (o *Orchestrator) StateFor(done <-chan struct{}) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	current := o.active != nil && (<-chan struct{})(o.active.done) == done
	return o.state.Clone(), current
}

// Filters returns the filter inputs used by subsequent searches.
func (o *Orchestrator) Filters() filter.Inputs {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters
}

// SetFilters replaces the filter inputs for subsequent searches.
func (o *Orchestrator) SetFilters(f filter.Inputs) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filters = f
}

// Search schedules query after the debounce delay and returns a channel that
// is closed once this invocation is finished: completed, failed, or superseded.
func (o *Orchestrator) Search(query string) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	tok := newToken(o.base)
	if o.closed {
		tok.finish()
		return tok.done
	}
	o.supersedeLocked()
	o.active = tok
	tok.timer = time.AfterFunc(o.debounce, func() { o.run(tok, query) })
	return tok.done
}

// Close supersedes all work. Later Search calls finish immediately.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.supersedeLocked()
	o.active = nil
	o.stop()
}

func (o *Orchestrator) supersedeLocked() {
	if o.active != nil {
		o.active.supersede()
	}
	o.transport.Cancel()
}

func (o *Orchestrator) run(tok *token, query string) {
	defer tok.finish()

	q := strings.TrimSpace(query)
	if q == "" {
		o.apply(tok, func(s *State) { *s = State{} })
		return
	}

	req, err := request.New(q, o.cfg.Limit, o.Filters(), o.cfg.Streaming)
	if err != nil {
		o.apply(tok, func(s *State) { *s = State{Query: q, Err: err} })
		return
	}

	sig, sigErr := req.Signature(o.cfg.Identity)
	if sigErr != nil {
		o.logger.Warn("search not cacheable", zap.Error(sigErr))
	} else {
		o.cache.Sweep(tok.ctx)
		if cached, ok := o.cache.Get(tok.ctx, sig); ok {
			visible := o.transform(cached.Results)
			o.apply(tok, func(s *State) {
				*s = State{
					Query:     q,
					Results:   visible,
					AIAnswer:  cached.AIAnswer,
					Metadata:  cached.Metadata,
					FromCache: true,
				}
			})
			return
		}
	}

	started := o.apply(tok, func(s *State) {
		*s = State{Query: q, Loading: true, Streaming: req.Streaming()}
	})
	if !started {
		return
	}
	o.notify(tok, o.cfg.OnSearch, q)

	var out outcome.Outcome
	if req.Streaming() {
		out, err = o.stream(tok, req)
		if err != nil && o.shouldFallback(tok, err) {
			o.logger.Warn("streaming search failed, falling back to buffered", zap.Error(err))
			if o.cfg.Metrics.FallbacksTotal != nil {
				o.cfg.Metrics.FallbacksTotal.Inc()
			}
			if !o.apply(tok, func(s *State) { s.Streaming = false; s.Stages = nil; s.AIAnswer = nil }) {
				return
			}
			out, err = o.transport.ExecuteBuffered(tok.ctx, req)
		}
	} else {
		out, err = o.transport.ExecuteBuffered(tok.ctx, req)
	}

	switch {
	case err == nil:
		o.finalize(tok, q, sig, sigErr == nil, out)
	case errors.Is(err, domain.ErrCancelled) || tok.cancelled():
		o.logger.Debug("search superseded", zap.String("query", q))
	case errors.Is(err, domain.ErrExecutionFailed):
		// Already surfaced by stream.
	default:
		o.logger.Warn("search failed", zap.String("query", q), zap.Error(err))
		o.apply(tok, func(s *State) {
			s.Loading = false
			s.Streaming = false
			s.Err = err
			s.Results = nil
			s.AIAnswer = nil
		})
	}
}

// shouldFallback reports whether a streaming failure gets one buffered retry.
// Only transport-level failures qualify.
func (o *Orchestrator) shouldFallback(tok *token, err error) bool {
	if tok.cancelled() || errors.Is(err, domain.ErrCancelled) {
		return false
	}
	if errors.Is(err, domain.ErrExecutionFailed) {
		return false
	}
	return errors.Is(err, domain.ErrRequestFailed)
}

// stream drives one streaming execution through an aggregator. It returns the
// collected outcome after a clean end of stream, the ExecutionError after an
// execution_error event (already applied to State), or the transport error.
func (o *Orchestrator) stream(tok *token, req request.Request) (outcome.Outcome, error) {
	st, err := o.transport.ExecuteStreaming(tok.ctx, req)
	if err != nil {
		return outcome.Outcome{}, err
	}
	defer func() { _ = st.Close() }()

	agg := aggregate.New()
	for st.Next() {
		sig := st.Signal()
		o.countFrame(sig)

		var change aggregate.Change
		switch sig.Kind {
		case sse.KindEvent:
			change = agg.Apply(sig.Event)
		case sse.KindAnswerChunk:
			change = agg.AppendAnswer(sig.Text)
		case sse.KindResults:
			change = agg.ApplyResults(sig.Documents)
		case sse.KindDone:
		}

		if change.Has(aggregate.ChangeFailed) {
			failure := agg.Failure()
			stages := agg.Stages()
			if !o.apply(tok, func(s *State) {
				s.Err = failure
				s.Loading = false
				s.Streaming = false
				s.Stages = stages
			}) {
				return outcome.Outcome{}, domain.ErrCancelled
			}
			return outcome.Outcome{}, failure
		}
		if change&^aggregate.ChangeFinal == 0 {
			continue
		}

		var (
			stages  = agg.Stages()
			visible []document.Document
			answer  *outcome.AIAnswer
		)
		if change.Has(aggregate.ChangeResults) {
			visible = o.transform(agg.Current())
		}
		if text, ok := agg.Answer(); ok {
			answer = &outcome.AIAnswer{Answer: text, IsStreaming: true}
		}
		if !o.apply(tok, func(s *State) {
			s.Stages = stages
			if change.Has(aggregate.ChangeResults) {
				s.Results = visible
			}
			if change.Has(aggregate.ChangeAnswer) {
				s.AIAnswer = answer
			}
		}) {
			return outcome.Outcome{}, domain.ErrCancelled
		}
	}
	if err := st.Err(); err != nil {
		return outcome.Outcome{}, err
	}

	final, _ := agg.Final()
	out := outcome.Outcome{Results: final}
	if out.Results == nil {
		out.Results = []document.Document{}
	}
	if text, ok := agg.Answer(); ok {
		out.AIAnswer = &outcome.AIAnswer{Answer: text}
	}
	return out, nil
}

func (o *Orchestrator) finalize(tok *token, q, sig string, cacheable bool, out outcome.Outcome) {
	visible := o.transform(out.Results)
	done := o.apply(tok, func(s *State) {
		s.Results = visible
		s.AIAnswer = out.AIAnswer
		s.Metadata = out.Metadata
		s.Loading = false
		s.Streaming = false
		s.Err = nil
	})
	if !done {
		return
	}
	if cacheable {
		o.cache.Put(context.WithoutCancel(tok.ctx), sig, out)
	}
	o.notify(tok, o.cfg.OnSearchExecuted, q)
	if len(visible) == 0 {
		o.notify(tok, o.cfg.OnZeroResults, q)
	}
}

// apply mutates State if tok is still the active search and delivers the
// new snapshot to OnChange. It reports whether tok was still active.
func (o *Orchestrator) apply(tok *token, mutate func(*State)) bool {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if o.active != tok || tok.cancelled() {
		o.mu.Unlock()
		return false
	}
	mutate(&o.state)
	snap := o.state.Clone()
	o.mu.Unlock()

	if o.cfg.OnChange != nil {
		o.cfg.OnChange(snap)
	}
	return true
}

// notify invokes fn with the query if tok is still the active search.
func (o *Orchestrator) notify(tok *token, fn func(string), query string) {
	if fn == nil {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	current := o.active == tok && !tok.cancelled()
	o.mu.Unlock()
	if current {
		fn(query)
	}
}

func (o *Orchestrator) transform(docs []document.Document) []document.Document {
	docs = document.Clone(docs)
	if docs == nil {
		docs = []document.Document{}
	}
	if o.cfg.Transform == nil {
		return docs
	}
	out := o.cfg.Transform(docs)
	if out == nil {
		return []document.Document{}
	}
	return out
}

func (o *Orchestrator) countFrame(sig sse.Signal) {
	if o.cfg.Metrics.FramesTotal == nil {
		return
	}
	kind := sig.Kind.String()
	if sig.Kind == sse.KindEvent {
		kind = string(sig.Event.Kind())
	}
	o.cfg.Metrics.FramesTotal.WithLabelValues(kind).Inc()
}
