package searchkit

import (
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
	"github.com/mixpeek/searchkit/internal/domain/search/filter"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/stage"
	"github.com/mixpeek/searchkit/internal/transport/retriever"
	"github.com/mixpeek/searchkit/internal/transport/sse"
	"github.com/mixpeek/searchkit/internal/usecase/search"
)

// Result and outcome types.
type (
	Document = document.Document
	Outcome  = outcome.Outcome
	AIAnswer = outcome.AIAnswer
	Citation = outcome.Citation
	Metadata = outcome.Metadata
	CTA      = outcome.CTA
)

// Stage progress types.
type (
	StageGroup      = stage.Group
	StageStatus     = stage.Status
	StageStatistics = stage.Statistics
)

// Stage statuses.
const (
	StagePending  = stage.Pending
	StageRunning  = stage.Running
	StageComplete = stage.Complete
	StageError    = stage.Error
)

// Stream types.
type (
	Stream     = retriever.Stream
	Signal     = sse.Signal
	SignalKind = sse.Kind
	Event      = event.Event
	EventKind  = event.Kind
)

// Signal kinds.
const (
	SignalEvent       = sse.KindEvent
	SignalAnswerChunk = sse.KindAnswerChunk
	SignalResults     = sse.KindResults
	SignalDone        = sse.KindDone
)

// Concrete stage events, for type switches on Signal.Event.
type (
	StageStartEvent        = event.StageStart
	StageCompleteEvent     = event.StageComplete
	StageErrorEvent        = event.StageError
	ExecutionCompleteEvent = event.ExecutionComplete
	ExecutionErrorEvent    = event.ExecutionError
)

// Filters are retriever input fields sent next to the query. Setting a field
// to nil, "" or an empty slice removes it.
type Filters = filter.Inputs

// NewFilters builds a Filters set, dropping empty values.
func NewFilters(values map[string]any) Filters { return filter.NewInputs(values) }

// NewDocument builds a Document from a field map.
func NewDocument(fields map[string]any) (Document, error) { return document.New(fields) }

// State is the observable state of a Searcher.
type State = search.State

// SearchRequest is a direct Execute or Stream call.
// A Limit below 1 uses the client's max results.
type SearchRequest struct {
	Query   string
	Limit   int
	Filters Filters
}
