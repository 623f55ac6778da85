package pipeline

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mixpeek/searchkit/internal/domain/document"
)

// maxAnswerSources caps the documents an answer cites.
const maxAnswerSources = 3

// SummaryAnswerer builds a short extractive answer from the top documents
// and streams it word by word.
type SummaryAnswerer struct {
	// ChunkDelay paces the streamed words.
	ChunkDelay time.Duration
}

// Answer implements Answerer.
func (a SummaryAnswerer) Answer(
	ctx context.Context, query string, docs []document.Document, onChunk func(string) error,
) (string, error) {
	text := summarize(query, docs)
	words := strings.SplitAfter(text, " ")
	for _, w := range words {
		if err := sleep(ctx, a.ChunkDelay); err != nil {
			return "", err
		}
		if err := onChunk(w); err != nil {
			return "", err
		}
	}
	return text, nil
}

func summarize(query string, docs []document.Document) string {
	if len(docs) > maxAnswerSources {
		docs = docs[:maxAnswerSources]
	}
	titles := make([]string, 0, len(docs))
	for _, d := range docs {
		t := d.Title()
		if t == "" {
			t = d.ID()
		}
		titles = append(titles, t)
	}
	return "Top matches for \"" + query + "\": " + strings.Join(titles, "; ") + "."
}

// SourcesPrompt renders the documents an LLM answerer is grounded on.
func SourcesPrompt(docs []document.Document) string {
	if len(docs) > maxAnswerSources {
		docs = docs[:maxAnswerSources]
	}
	var b strings.Builder
	for i, d := range docs {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(d.Title())
		if c := d.Content(); c != "" {
			b.WriteString(": ")
			b.WriteString(c)
		}
		b.WriteString("\n")
	}
	return b.String()
}
