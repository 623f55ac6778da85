package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mixpeek/searchkit/internal/domain/document"
)

// Corpus is the document set a stub retriever searches.
type Corpus struct {
	docs []document.Document
}

type corpusFile struct {
	Documents []map[string]any `yaml:"documents"`
}

// LoadCorpus reads a YAML corpus file.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes a YAML corpus. Every document needs an id.
func ParseCorpus(data []byte) (*Corpus, error) {
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Documents))
	docs := make([]document.Document, 0, len(f.Documents))
	for i, fields := range f.Documents {
		d, err := document.New(fields)
		if err != nil {
			return nil, fmt.Errorf("corpus document %d: %w", i, err)
		}
		id := d.ID()
		if id == "" {
			return nil, fmt.Errorf("corpus document %d: missing id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("corpus document %d: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		docs = append(docs, d)
	}
	return &Corpus{docs: docs}, nil
}

// NewCorpus wraps already-built documents.
func NewCorpus(docs []document.Document) *Corpus {
	return &Corpus{docs: document.Clone(docs)}
}

// Documents returns a copy of the corpus.
func (c *Corpus) Documents() []document.Document {
	if c == nil {
		return nil
	}
	return document.Clone(c.docs)
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}
