package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/mixpeek/searchkit"
)

var (
	queryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	stageDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32"))

	stageRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	stageErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	answerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

const maxSnippet = 160

// progress prints stage transitions as they arrive. OnChange fires in order,
// but from the searcher's goroutines, so printing is serialized.
type progress struct {
	mu      sync.Mutex
	out     io.Writer
	seen    map[string]searchkit.StageStatus
	loading bool
	onIdle  func(searchkit.State)
}

func newProgress(out io.Writer, onIdle func(searchkit.State)) *progress {
	return &progress{out: out, seen: make(map[string]searchkit.StageStatus), onIdle: onIdle}
}

func (p *progress) onChange(st searchkit.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Loading && !p.loading {
		clear(p.seen)
		fmt.Fprintln(p.out, metaStyle.Render("searching ")+queryStyle.Render(st.Query))
	}
	for _, g := range st.Stages {
		if g == nil {
			continue
		}
		key := fmt.Sprintf("%d/%s", g.Index, g.Name)
		if p.seen[key] == g.Status {
			continue
		}
		p.seen[key] = g.Status
		if line := stageLine(g); line != "" {
			fmt.Fprintln(p.out, line)
		}
	}

	wasLoading := p.loading
	p.loading = st.Loading
	finished := (wasLoading || st.FromCache) && !st.Loading
	if finished && p.onIdle != nil {
		p.onIdle(st)
	}
}

func stageLine(g *searchkit.StageGroup) string {
	switch g.Status {
	case searchkit.StageRunning:
		return stageRunningStyle.Render("  ⋯ " + g.Name)
	case searchkit.StageComplete:
		detail := fmt.Sprintf("%d docs", len(g.Documents))
		if g.Statistics != nil && g.Statistics.DurationMS != nil {
			detail += fmt.Sprintf(", %.0fms", *g.Statistics.DurationMS)
		}
		return stageDoneStyle.Render("  ✓ "+g.Name) + " " + metaStyle.Render(detail)
	case searchkit.StageError:
		return stageErrorStyle.Render("  ✗ "+g.Name) + " " + metaStyle.Render(g.Error)
	default:
		return ""
	}
}

// renderResults writes the finished state of a search.
func renderResults(out io.Writer, st searchkit.State) {
	if st.Err != nil {
		fmt.Fprintln(out, stageErrorStyle.Render("search failed: "+st.Err.Error()))
		return
	}
	if st.AIAnswer != nil && st.AIAnswer.Answer != "" {
		fmt.Fprintln(out, answerStyle.Render(st.AIAnswer.Answer))
	}
	if len(st.Results) == 0 {
		fmt.Fprintln(out, noDataStyle.Render("No results found"))
		return
	}

	for i, d := range st.Results {
		title := d.Title()
		if title == "" {
			title = d.ID()
		}
		fmt.Fprintf(out, "%d. %s\n", i+1, titleStyle.Render(title))
		if snippet := snippet(d.Content()); snippet != "" {
			fmt.Fprintf(out, "   %s\n", snippet)
		}
		if url := d.PageURL(); url != "" {
			fmt.Fprintf(out, "   %s\n", metaStyle.Render(url))
		}
	}

	summary := fmt.Sprintf("%d results", len(st.Results))
	if st.Metadata != nil && st.Metadata.TookMS != nil {
		summary += fmt.Sprintf(" in %.0fms", *st.Metadata.TookMS)
	}
	if st.FromCache {
		summary += " (cached)"
	}
	fmt.Fprintln(out, metaStyle.Render(summary))
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSnippet {
		return string(r[:maxSnippet]) + "…"
	}
	return s
}
