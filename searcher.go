package searchkit

import (
	"context"
	"strings"
	"time"

	"github.com/mixpeek/searchkit/internal/usecase/search"
)

// Searcher is an interactive search session: debounced, cached and streaming.
// A new Search supersedes the previous one. Safe for concurrent use.
type Searcher struct {
	orch *search.Orchestrator
	obs  *observer
}

// Search schedules query. The returned channel is closed once this
// invocation has finished, failed, or been superseded. A blank query clears
// the results without a network call.
func (s *Searcher) Search(query string) <-chan struct{} {
	return s.orch.Search(query)
}

// SearchAndWait runs query and waits for it to finish or for ctx to end.
// The returned error is the search failure recorded in State, ctx.Err(), or
// ErrCancelled when a later Search superseded this one.
func (s *Searcher) SearchAndWait(ctx context.Context, query string) (_ State, err error) {
	defer func(start time.Time) { s.obs.observe("search", start, err) }(time.Now())

	done := s.orch.Search(query)
	select {
	case <-done:
		st, current := s.orch.StateFor(done)
		if !current || st.Query != strings.TrimSpace(query) {
			return st, ErrCancelled
		}
		return st, st.Err
	case <-ctx.Done():
		return s.orch.State(), ctx.Err()
	}
}

// State returns a snapshot of the current state.
func (s *Searcher) State() State { return s.orch.State() }

// Filters returns the filter inputs used by subsequent searches.
func (s *Searcher) Filters() Filters { return s.orch.Filters() }

// SetFilters replaces the filter inputs. The next Search uses them.
func (s *Searcher) SetFilters(f Filters) { s.orch.SetFilters(f) }

// SetFilter sets a single filter field; an empty value removes it.
func (s *Searcher) SetFilter(field string, value any) {
	s.orch.SetFilters(s.orch.Filters().Set(field, value))
}

// ClearFilters removes every filter field.
func (s *Searcher) ClearFilters() { s.orch.SetFilters(Filters{}) }

// Close cancels pending and in-flight work. Later Search calls finish
// immediately without changing state.
func (s *Searcher) Close() { s.orch.Close() }
