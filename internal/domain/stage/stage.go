// Package stage models the client-side view of one retriever pipeline stage.
package stage

import (
	"strconv"

	"github.com/mixpeek/searchkit/internal/domain/document"
)

// Status is the lifecycle state of a stage.
type Status string

// Stage statuses.
const (
	Pending  Status = "pending"
	Running  Status = "running"
	Complete Status = "complete"
	Error    Status = "error"
)

// IsTerminal reports whether the stage finished (successfully or not).
func (s Status) IsTerminal() bool { return s == Complete || s == Error }

// Statistics are the server-reported counters for a stage.
type Statistics struct {
	InputCount  *int     `json:"input_count,omitempty"`
	OutputCount *int     `json:"output_count,omitempty"`
	DurationMS  *float64 `json:"duration_ms,omitempty"`
	Efficiency  *float64 `json:"efficiency,omitempty"`
}

// Group aggregates everything known about one stage index.
type Group struct {
	Name       string
	Index      int
	Status     Status
	Documents  []document.Document
	Statistics *Statistics
	Error      string
}

// DefaultName is used when neither the event nor earlier state names the stage.
func DefaultName(index int) string {
	return "Stage " + strconv.Itoa(index)
}

// Clone returns a deep copy of g.
func (g Group) Clone() Group {
	out := g
	out.Documents = document.Clone(g.Documents)
	if g.Statistics != nil {
		s := *g.Statistics
		out.Statistics = &s
	}
	return out
}

// CloneAll deep-copies a sparse slice; absent slots stay nil.
func CloneAll(groups []*Group) []*Group {
	if groups == nil {
		return nil
	}
	out := make([]*Group, len(groups))
	for i, g := range groups {
		if g == nil {
			continue
		}
		c := g.Clone()
		out[i] = &c
	}
	return out
}
