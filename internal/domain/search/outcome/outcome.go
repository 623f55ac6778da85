package outcome

import (
	"encoding/json"
	"maps"

	"github.com/mixpeek/searchkit/internal/domain/document"
)

// Citation references a result by position.
type Citation struct {
	ResultIndex int    `json:"result_index"`
	Text        string `json:"text"`
}

// AIAnswer is the generated answer attached to a search.
type AIAnswer struct {
	Answer      string     `json:"answer"`
	Citations   []Citation `json:"citations,omitempty"`
	IsStreaming bool       `json:"is_streaming,omitempty"`
}

// CTA is a server-provided call to action.
type CTA struct {
	Message    string `json:"message"`
	ButtonText string `json:"button_text"`
	ButtonURL  string `json:"button_url"`
}

// Metadata is the response metadata. Extra keeps unrecognized keys and is
// flattened back into the object on the wire.
type Metadata struct {
	Total  *int           `json:"total,omitempty"`
	TookMS *float64       `json:"took_ms,omitempty"`
	CTA    *CTA           `json:"cta,omitempty"`
	Extra  map[string]any `json:"-"`
}

type metadataAlias Metadata

var metadataKeys = []string{"total", "took_ms", "cta"}

// UnmarshalJSON decodes known keys and collects the rest into Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var known metadataAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range metadataKeys {
		delete(all, k)
	}
	*m = Metadata(known)
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

// MarshalJSON writes Extra keys alongside the known ones. Known keys win.
func (m Metadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metadataAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}
	out := make(map[string]any, len(m.Extra)+len(metadataKeys))
	maps.Copy(out, m.Extra)
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	maps.Copy(out, fields)
	return json.Marshal(out)
}

// Outcome is the authoritative, finalized result of one search.
type Outcome struct {
	Results  []document.Document `json:"results"`
	AIAnswer *AIAnswer           `json:"ai_answer,omitempty"`
	Metadata *Metadata           `json:"metadata,omitempty"`
}

// IsEmpty reports whether the outcome has no results.
func (o Outcome) IsEmpty() bool { return len(o.Results) == 0 }

// Clone returns a copy that shares no mutable state with o.
func (o Outcome) Clone() Outcome {
	out := Outcome{Results: document.Clone(o.Results)}
	if out.Results == nil {
		out.Results = []document.Document{}
	}
	if o.AIAnswer != nil {
		a := *o.AIAnswer
		a.Citations = append([]Citation(nil), o.AIAnswer.Citations...)
		out.AIAnswer = &a
	}
	if o.Metadata != nil {
		m := *o.Metadata
		m.Extra = maps.Clone(o.Metadata.Extra)
		if o.Metadata.CTA != nil {
			cta := *o.Metadata.CTA
			m.CTA = &cta
		}
		out.Metadata = &m
	}
	return out
}
