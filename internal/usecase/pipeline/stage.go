package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mixpeek/searchkit/internal/domain/document"
)

// Query is one execution's input.
type Query struct {
	Text   string
	Limit  int
	Inputs map[string]any
}

// Stage transforms the candidate list of an execution.
type Stage interface {
	Name() string
	Run(ctx context.Context, q Query, in []document.Document) ([]document.Document, error)
}

// DefaultStages is the search, filter, rerank chain.
func DefaultStages() []Stage {
	return []Stage{LexicalSearch{}, AttributeFilter{}, RRFRerank{}}
}

// LexicalSearch keeps documents sharing a term with the query, scored by
// term frequency with title matches weighted double.
type LexicalSearch struct{}

// Name implements Stage.
func (LexicalSearch) Name() string { return "search" }

// Run implements Stage.
func (LexicalSearch) Run(ctx context.Context, q Query, in []document.Document) ([]document.Document, error) {
	terms := tokenize(q.Text)
	type scored struct {
		doc   document.Document
		score float64
	}
	hits := make([]scored, 0, len(in))
	for _, d := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := 2*termHits(terms, d.Title()) + termHits(terms, d.Content())
		if s > 0 {
			hits = append(hits, scored{doc: d, score: float64(s)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]document.Document, 0, len(hits))
	for _, h := range hits {
		d, err := h.doc.WithField(document.FieldScore, h.score)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// AttributeFilter keeps documents whose fields match every non-query input.
// A list input matches any of its values; matching is case-insensitive.
type AttributeFilter struct{}

// Name implements Stage.
func (AttributeFilter) Name() string { return "filter" }

// Run implements Stage.
func (AttributeFilter) Run(_ context.Context, q Query, in []document.Document) ([]document.Document, error) {
	conds := make(map[string]any, len(q.Inputs))
	for k, v := range q.Inputs {
		if k == "query" || strings.HasPrefix(k, debugInputPrefix) {
			continue
		}
		conds[k] = v
	}
	if len(conds) == 0 {
		return in, nil
	}
	out := make([]document.Document, 0, len(in))
	for _, d := range in {
		if matchesAll(d, conds) {
			out = append(out, d)
		}
	}
	return out, nil
}

func matchesAll(d document.Document, conds map[string]any) bool {
	for field, want := range conds {
		raw, ok := d.Field(field)
		if !ok {
			return false
		}
		var have any
		if err := json.Unmarshal(raw, &have); err != nil {
			return false
		}
		if !matchValue(have, want) {
			return false
		}
	}
	return true
}

func matchValue(have, want any) bool {
	if list, ok := want.([]any); ok {
		for _, w := range list {
			if matchValue(have, w) {
				return true
			}
		}
		return false
	}
	if list, ok := have.([]any); ok {
		for _, h := range list {
			if matchValue(h, want) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(fmt.Sprint(have), fmt.Sprint(want))
}

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// RRFRerank fuses a title ranking and a content ranking via Reciprocal
// Rank Fusion and rewrites the score field with the fused score.
type RRFRerank struct{}

// Name implements Stage.
func (RRFRerank) Name() string { return "rerank" }

// Run implements Stage.
func (RRFRerank) Run(_ context.Context, q Query, in []document.Document) ([]document.Document, error) {
	terms := tokenize(q.Text)
	byTitle := rankBy(in, func(d document.Document) int { return termHits(terms, d.Title()) })
	byContent := rankBy(in, func(d document.Document) int { return termHits(terms, d.Content()) })
	return fuseRRF(byTitle, byContent)
}

// rankBy orders docs by a descending signal, dropping docs without signal.
func rankBy(docs []document.Document, signal func(document.Document) int) []document.Document {
	type ranked struct {
		doc document.Document
		n   int
	}
	rs := make([]ranked, 0, len(docs))
	for _, d := range docs {
		if n := signal(d); n > 0 {
			rs = append(rs, ranked{doc: d, n: n})
		}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].n > rs[j].n })
	out := make([]document.Document, len(rs))
	for i, r := range rs {
		out[i] = r.doc
	}
	return out
}

// fuseRRF merges two rankings.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
func fuseRRF(first, second []document.Document) ([]document.Document, error) {
	type scored struct {
		doc   document.Document
		score float64
		order int
	}

	merged := make(map[string]*scored)
	add := func(list []document.Document) {
		for rank, d := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[d.ID()]; ok {
				existing.score += s
				continue
			}
			merged[d.ID()] = &scored{doc: d, score: s, order: len(merged)}
		}
	}
	add(first)
	add(second)

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	out := make([]document.Document, 0, len(all))
	for _, s := range all {
		d, err := s.doc.WithField(document.FieldScore, s.score)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termHits(terms []string, text string) int {
	if len(terms) == 0 || text == "" {
		return 0
	}
	words := tokenize(text)
	n := 0
	for _, w := range words {
		for _, t := range terms {
			if w == t {
				n++
			}
		}
	}
	return n
}
