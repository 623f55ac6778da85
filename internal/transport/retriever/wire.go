package retriever

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
)

type executeSettings struct {
	Limit int `json:"limit"`
}

// ExecuteBody is the JSON body of an execute call.
type ExecuteBody struct {
	Inputs   map[string]any  `json:"inputs"`
	Settings executeSettings `json:"settings"`
	Stream   bool            `json:"stream,omitempty"`
}

// NewExecuteBody builds the wire body. Filter inputs are merged next to the
// query; a filter named "query" never overrides the search text.
func NewExecuteBody(req request.Request, stream bool) ExecuteBody {
	inputs := req.Filters().Map()
	if inputs == nil {
		inputs = make(map[string]any, 1)
	}
	inputs["query"] = req.Query()
	return ExecuteBody{
		Inputs:   inputs,
		Settings: executeSettings{Limit: req.Limit()},
		Stream:   stream,
	}
}

// executeResponse is the buffered response; the list may be named either way.
type executeResponse struct {
	Results   []document.Document `json:"results"`
	Documents []document.Document `json:"documents"`
	AIAnswer  *outcome.AIAnswer   `json:"ai_answer"`
	Metadata  *outcome.Metadata   `json:"metadata"`
}

func decodeOutcome(body []byte) (outcome.Outcome, error) {
	var resp executeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return outcome.Outcome{}, fmt.Errorf("decode response: %w", err)
	}
	results := resp.Results
	if results == nil {
		results = resp.Documents
	}
	if results == nil {
		results = []document.Document{}
	}
	return outcome.Outcome{
		Results:  results,
		AIAnswer: resp.AIAnswer,
		Metadata: resp.Metadata,
	}, nil
}

// extractDetail returns the "detail" field of an error body. Object details
// are returned as their JSON text.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil || len(parsed.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(parsed.Detail, &s) == nil {
		return s
	}
	switch string(parsed.Detail) {
	case "null", "false", "0":
		return ""
	}
	var compact bytes.Buffer
	if json.Compact(&compact, parsed.Detail) != nil {
		return string(parsed.Detail)
	}
	return compact.String()
}
