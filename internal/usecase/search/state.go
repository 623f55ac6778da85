package search

import (
	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/stage"
)

// State is the observable state of an Orchestrator.
type State struct {
	Query   string
	Results []document.Document
	// Stages is sparse: position is the stage index, unseen indices are nil.
	Stages    []*stage.Group
	Loading   bool
	Streaming bool
	Err       error
	AIAnswer  *outcome.AIAnswer
	Metadata  *outcome.Metadata
	// FromCache is set when Results came from the result cache.
	FromCache bool
}

// Clone returns a deep copy. Results is never nil in the copy.
func (s State) Clone() State {
	o := outcome.Outcome{Results: s.Results, AIAnswer: s.AIAnswer, Metadata: s.Metadata}.Clone()
	s.Results = o.Results
	s.AIAnswer = o.AIAnswer
	s.Metadata = o.Metadata
	s.Stages = stage.CloneAll(s.Stages)
	return s
}
