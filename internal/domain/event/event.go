// Package event defines the closed set of pipeline progress events a
// retriever emits while streaming an execution.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/stage"
)

// Kind is the event_type tag.
type Kind string

// Event kinds.
const (
	KindStageStart        Kind = "stage_start"
	KindStageComplete     Kind = "stage_complete"
	KindStageError        Kind = "stage_error"
	KindExecutionComplete Kind = "execution_complete"
	KindExecutionError    Kind = "execution_error"
)

// MaxStageIndex bounds the sparse stage table.
const MaxStageIndex = 1024

var (
	// ErrUnknownKind signals an event_type outside the closed set.
	ErrUnknownKind = errors.New("unknown event type")
	// ErrMissingStageIndex signals a stage event without a usable stage_index.
	ErrMissingStageIndex = errors.New("missing or invalid stage index")
)

// Event is one of StageStart, StageComplete, StageError, ExecutionComplete, ExecutionError.
type Event interface {
	Kind() Kind
	Execution() string
	isEvent()
}

// Header is shared by all events.
type Header struct {
	ExecutionID string
	TotalStages *int
	BudgetUsed  map[string]any
	Pagination  map[string]any
}

// Execution returns the execution identifier.
func (h Header) Execution() string { return h.ExecutionID }

func (Header) isEvent() {}

// StageStart opens (or restarts) a stage slot.
type StageStart struct {
	Header
	Index int
	Name  string
}

// StageComplete closes a stage with its documents.
type StageComplete struct {
	Header
	Index      int
	Name       string
	Documents  []document.Document
	Statistics *stage.Statistics
}

// StageError marks a stage as failed.
type StageError struct {
	Header
	Index int
	Name  string
	Error string
}

// ExecutionComplete carries the authoritative final result set.
type ExecutionComplete struct {
	Header
	Documents []document.Document
}

// ExecutionError is a terminal pipeline failure.
type ExecutionError struct {
	Header
	Error string
}

// Kind implementations.
func (StageStart) Kind() Kind        { return KindStageStart }
func (StageComplete) Kind() Kind     { return KindStageComplete }
func (StageError) Kind() Kind        { return KindStageError }
func (ExecutionComplete) Kind() Kind { return KindExecutionComplete }
func (ExecutionError) Kind() Kind    { return KindExecutionError }

// Wire is the JSON shape of a stage event frame.
type Wire struct {
	EventType   Kind                `json:"event_type"`
	ExecutionID string              `json:"execution_id"`
	StageName   string              `json:"stage_name,omitempty"`
	StageIndex  *int                `json:"stage_index,omitempty"`
	TotalStages *int                `json:"total_stages,omitempty"`
	Statistics  *stage.Statistics   `json:"statistics,omitempty"`
	Documents   []document.Document `json:"documents,omitempty"`
	BudgetUsed  map[string]any      `json:"budget_used,omitempty"`
	Pagination  map[string]any      `json:"pagination,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Decode maps a wire frame onto the closed event set.
func (w *Wire) Decode() (Event, error) {
	h := Header{
		ExecutionID: w.ExecutionID,
		TotalStages: w.TotalStages,
		BudgetUsed:  w.BudgetUsed,
		Pagination:  w.Pagination,
	}
	switch w.EventType {
	case KindStageStart, KindStageComplete, KindStageError:
		if w.StageIndex == nil || *w.StageIndex < 0 || *w.StageIndex > MaxStageIndex {
			return nil, fmt.Errorf("%s: %w", w.EventType, ErrMissingStageIndex)
		}
	}
	switch w.EventType {
	case KindStageStart:
		return StageStart{Header: h, Index: *w.StageIndex, Name: w.StageName}, nil
	case KindStageComplete:
		return StageComplete{
			Header: h, Index: *w.StageIndex, Name: w.StageName,
			Documents: w.Documents, Statistics: w.Statistics,
		}, nil
	case KindStageError:
		return StageError{Header: h, Index: *w.StageIndex, Name: w.StageName, Error: w.Error}, nil
	case KindExecutionComplete:
		return ExecutionComplete{Header: h, Documents: w.Documents}, nil
	case KindExecutionError:
		return ExecutionError{Header: h, Error: w.Error}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.EventType)
	}
}

// Encode is the inverse of Decode (used by servers and tests).
func Encode(e Event) Wire {
	var w Wire
	setHeader := func(h Header) {
		w.ExecutionID = h.ExecutionID
		w.TotalStages = h.TotalStages
		w.BudgetUsed = h.BudgetUsed
		w.Pagination = h.Pagination
	}
	idx := func(i int) *int { return &i }
	switch ev := e.(type) {
	case StageStart:
		setHeader(ev.Header)
		w.StageIndex, w.StageName = idx(ev.Index), ev.Name
	case StageComplete:
		setHeader(ev.Header)
		w.StageIndex, w.StageName = idx(ev.Index), ev.Name
		w.Documents, w.Statistics = ev.Documents, ev.Statistics
	case StageError:
		setHeader(ev.Header)
		w.StageIndex, w.StageName, w.Error = idx(ev.Index), ev.Name, ev.Error
	case ExecutionComplete:
		setHeader(ev.Header)
		w.Documents = ev.Documents
	case ExecutionError:
		setHeader(ev.Header)
		w.Error = ev.Error
	}
	w.EventType = e.Kind()
	return w
}

// Marshal encodes an event as a JSON frame payload.
func Marshal(e Event) ([]byte, error) {
	w := Encode(e)
	b, err := json.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Kind(), err)
	}
	return b, nil
}
