// Package pipeline runs a small multi-stage retriever over an in-memory
// corpus, reporting progress as stage events. It backs the development
// retriever server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
	"github.com/mixpeek/searchkit/internal/domain/stage"
	"github.com/mixpeek/searchkit/internal/metrics"
)

// debugInputPrefix marks inputs that steer the stub instead of filtering.
const debugInputPrefix = "debug_"

// InputFailStage names a stage that should fail (e.g. "debug_fail_stage": "rerank").
const InputFailStage = debugInputPrefix + "fail_stage"

// ErrStageFailed signals a failed stage; the execution reports execution_error.
var ErrStageFailed = errors.New("stage failed")

// Sink receives progress while an execution runs. Returning an error aborts it.
type Sink interface {
	Event(e event.Event) error
	AnswerChunk(text string) error
}

// Answerer generates an answer from the final documents. onChunk receives
// partial text as it is produced.
type Answerer interface {
	Answer(ctx context.Context, query string, docs []document.Document, onChunk func(string) error) (string, error)
}

// Result is a finished execution.
type Result struct {
	ExecutionID string
	Documents   []document.Document
	Answer      string
	Took        time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStages replaces DefaultStages.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) { p.stages = stages }
}

// WithAnswerer enables the generated answer.
func WithAnswerer(a Answerer) Option {
	return func(p *Pipeline) { p.answerer = a }
}

// WithStageDelay pauses before each stage so progress is visible.
func WithStageDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline executes queries. Safe for concurrent use.
type Pipeline struct {
	corpus   *Corpus
	stages   []Stage
	answerer Answerer
	delay    time.Duration
	logger   *zap.Logger
}

// New creates a pipeline over corpus.
func New(corpus *Corpus, opts ...Option) *Pipeline {
	p := &Pipeline{
		corpus: corpus,
		stages: DefaultStages(),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Execute runs every stage in order. A nil sink runs silently (buffered mode).
// Stage failures are reported to the sink as stage_error followed by
// execution_error and returned wrapped in ErrStageFailed.
func (p *Pipeline) Execute(ctx context.Context, q Query, sink Sink) (Result, error) {
	if sink == nil {
		sink = nopSink{}
	}
	start := time.Now()
	execID := uuid.NewString()
	total := len(p.stages)
	header := event.Header{ExecutionID: execID, TotalStages: &total}
	failAt, _ := q.Inputs[InputFailStage].(string)

	docs := p.corpus.Documents()
	for i, st := range p.stages {
		if err := sink.Event(event.StageStart{Header: header, Index: i, Name: st.Name()}); err != nil {
			return Result{}, err
		}
		if err := sleep(ctx, p.delay); err != nil {
			return Result{}, err
		}

		stageStart := time.Now()
		out, err := p.runStage(ctx, st, q, docs, failAt)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			p.logger.Warn("stage failed", zap.String("stage", st.Name()), zap.Error(err))
			fail := p.fail(sink, header, i, st.Name(), err)
			return Result{}, errors.Join(fmt.Errorf("%s: %w: %w", st.Name(), ErrStageFailed, err), fail)
		}
		dur := time.Since(stageStart)
		metrics.StageDuration.WithLabelValues(st.Name()).Observe(dur.Seconds())
		metrics.StageDocuments.WithLabelValues(st.Name()).Observe(float64(len(out)))

		if err := sink.Event(event.StageComplete{
			Header:     header,
			Index:      i,
			Name:       st.Name(),
			Documents:  out,
			Statistics: statistics(len(docs), len(out), dur),
		}); err != nil {
			return Result{}, err
		}
		docs = out
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	var answer string
	if p.answerer != nil && len(docs) > 0 {
		var err error
		answer, err = p.answerer.Answer(ctx, q.Text, docs, sink.AnswerChunk)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			// A failed answer does not fail the search.
			p.logger.Warn("answer generation failed", zap.Error(err))
			answer = ""
		}
	}

	if err := sink.Event(event.ExecutionComplete{Header: header, Documents: docs}); err != nil {
		return Result{}, err
	}
	return Result{
		ExecutionID: execID,
		Documents:   docs,
		Answer:      answer,
		Took:        time.Since(start),
	}, nil
}

func (p *Pipeline) runStage(
	ctx context.Context, st Stage, q Query, docs []document.Document, failAt string,
) ([]document.Document, error) {
	if failAt != "" && strings.EqualFold(failAt, st.Name()) {
		return nil, errors.New("injected failure")
	}
	return st.Run(ctx, q, docs)
}

func (p *Pipeline) fail(sink Sink, h event.Header, index int, name string, cause error) error {
	if err := sink.Event(event.StageError{Header: h, Index: index, Name: name, Error: cause.Error()}); err != nil {
		return err
	}
	return sink.Event(event.ExecutionError{Header: h, Error: fmt.Sprintf("stage %q failed: %v", name, cause)})
}

func statistics(in, out int, dur time.Duration) *stage.Statistics {
	ms := float64(dur.Microseconds()) / 1000
	s := &stage.Statistics{InputCount: &in, OutputCount: &out, DurationMS: &ms}
	if in > 0 {
		eff := float64(out) / float64(in)
		s.Efficiency = &eff
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopSink struct{}

func (nopSink) Event(event.Event) error  { return nil }
func (nopSink) AnswerChunk(string) error { return nil }
