package aggregate

import (
	"strings"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
	"github.com/mixpeek/searchkit/internal/domain/stage"
)

// Change flags what an applied event touched.
type Change uint8

// Change flags.
const (
	ChangeStages Change = 1 << iota
	ChangeResults
	ChangeFinal
	ChangeAnswer
	ChangeFailed
)

// Has reports whether c includes flag.
func (c Change) Has(flag Change) bool { return c&flag != 0 }

// Aggregator folds one execution's events, in arrival order, into per-stage
// state and a best-known result set. It does not reorder or buffer.
// Not safe for concurrent use.
type Aggregator struct {
	stages  []*stage.Group
	current []document.Document

	final    []document.Document
	hasFinal bool

	answer    strings.Builder
	hasAnswer bool

	failure *domain.ExecutionError
}

// New creates an empty aggregator for one execution.
func New() *Aggregator {
	return &Aggregator{}
}

// Apply folds one event. Events after an execution_error are ignored.
func (a *Aggregator) Apply(e event.Event) Change {
	if a.failure != nil {
		return 0
	}
	switch ev := e.(type) {
	case event.StageStart:
		a.set(ev.Index, &stage.Group{
			Name:      firstNonEmpty(ev.Name, stage.DefaultName(ev.Index)),
			Index:     ev.Index,
			Status:    stage.Running,
			Documents: []document.Document{},
		})
		return ChangeStages

	case event.StageComplete:
		prev := a.slot(ev.Index)
		docs := ev.Documents
		if docs == nil {
			docs = []document.Document{}
		}
		a.set(ev.Index, &stage.Group{
			Name:       firstNonEmpty(ev.Name, prevName(prev), stage.DefaultName(ev.Index)),
			Index:      ev.Index,
			Status:     stage.Complete,
			Documents:  docs,
			Statistics: ev.Statistics,
		})
		if ev.Documents == nil {
			return ChangeStages
		}
		a.current = ev.Documents
		return ChangeStages | ChangeResults

	case event.StageError:
		prev := a.slot(ev.Index)
		g := &stage.Group{
			Name:      firstNonEmpty(prevName(prev), ev.Name, stage.DefaultName(ev.Index)),
			Index:     ev.Index,
			Status:    stage.Error,
			Documents: []document.Document{},
			Error:     ev.Error,
		}
		if prev != nil {
			g.Documents = prev.Documents
			g.Statistics = prev.Statistics
		}
		a.set(ev.Index, g)
		return ChangeStages

	case event.ExecutionComplete:
		a.final = ev.Documents
		if a.final == nil {
			a.final = []document.Document{}
		}
		a.hasFinal = true
		return ChangeFinal

	case event.ExecutionError:
		a.failure = &domain.ExecutionError{ExecutionID: ev.ExecutionID, Message: ev.Error}
		return ChangeFailed

	default:
		return 0
	}
}

// ApplyResults handles a legacy results frame: an authoritative result set
// that is also shown immediately.
func (a *Aggregator) ApplyResults(docs []document.Document) Change {
	if a.failure != nil {
		return 0
	}
	if docs == nil {
		docs = []document.Document{}
	}
	a.final = docs
	a.hasFinal = true
	a.current = docs
	return ChangeFinal | ChangeResults
}

// AppendAnswer accumulates a partial generated answer.
func (a *Aggregator) AppendAnswer(chunk string) Change {
	if a.failure != nil || chunk == "" {
		return 0
	}
	a.answer.WriteString(chunk)
	a.hasAnswer = true
	return ChangeAnswer
}

// Stages returns a deep copy of the sparse stage table (absent indices are nil).
func (a *Aggregator) Stages() []*stage.Group {
	return stage.CloneAll(a.stages)
}

// Stage returns a copy of one slot.
func (a *Aggregator) Stage(index int) (stage.Group, bool) {
	g := a.slot(index)
	if g == nil {
		return stage.Group{}, false
	}
	return g.Clone(), true
}

// Current returns the best-known visible results while streaming.
func (a *Aggregator) Current() []document.Document {
	return document.Clone(a.current)
}

// Final returns the authoritative result set, if one arrived.
func (a *Aggregator) Final() ([]document.Document, bool) {
	return document.Clone(a.final), a.hasFinal
}

// Answer returns the accumulated answer text.
func (a *Aggregator) Answer() (string, bool) {
	return a.answer.String(), a.hasAnswer
}

// Failure returns the execution error, if the execution failed.
func (a *Aggregator) Failure() error {
	if a.failure == nil {
		return nil
	}
	return a.failure
}

// Terminal reports whether aggregation has stopped.
func (a *Aggregator) Terminal() bool { return a.failure != nil }

func (a *Aggregator) slot(i int) *stage.Group {
	if i < 0 || i >= len(a.stages) {
		return nil
	}
	return a.stages[i]
}

func (a *Aggregator) set(i int, g *stage.Group) {
	if i >= len(a.stages) {
		grown := make([]*stage.Group, i+1)
		copy(grown, a.stages)
		a.stages = grown
	}
	a.stages[i] = g
}

func prevName(g *stage.Group) string {
	if g == nil {
		return ""
	}
	return g.Name
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
