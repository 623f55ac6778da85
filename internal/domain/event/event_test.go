package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, payload string) (Event, error) {
	t.Helper()
	var w Wire
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return w.Decode()
}

func TestDecode_AllKinds(t *testing.T) {
	tests := []struct {
		payload string
		kind    Kind
	}{
		{`{"event_type":"stage_start","execution_id":"e1","stage_index":0,"stage_name":"search"}`, KindStageStart},
		{`{"event_type":"stage_complete","execution_id":"e1","stage_index":0,"documents":[{"id":"a"}]}`, KindStageComplete},
		{`{"event_type":"stage_error","execution_id":"e1","stage_index":2,"error":"x"}`, KindStageError},
		{`{"event_type":"execution_complete","execution_id":"e1","documents":[]}`, KindExecutionComplete},
		{`{"event_type":"execution_error","execution_id":"e1","error":"boom"}`, KindExecutionError},
	}
	for _, tc := range tests {
		ev, err := decode(t, tc.payload)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.kind, err)
		}
		if ev.Kind() != tc.kind {
			t.Errorf("Kind() = %s, want %s", ev.Kind(), tc.kind)
		}
		if ev.Execution() != "e1" {
			t.Errorf("Execution() = %q", ev.Execution())
		}
	}
}

func TestDecode_StageComplete_Fields(t *testing.T) {
	ev, err := decode(t, `{"event_type":"stage_complete","stage_index":1,"stage_name":"rerank",
		"documents":[{"id":"a"},{"id":"b"}],"statistics":{"input_count":20,"output_count":2,"duration_ms":12.5}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, ok := ev.(StageComplete)
	if !ok {
		t.Fatalf("got %T", ev)
	}
	if sc.Index != 1 || sc.Name != "rerank" || len(sc.Documents) != 2 {
		t.Errorf("unexpected event: %+v", sc)
	}
	if sc.Statistics == nil || *sc.Statistics.OutputCount != 2 || *sc.Statistics.DurationMS != 12.5 {
		t.Errorf("statistics = %+v", sc.Statistics)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"unknown kind", `{"event_type":"stage_progress","stage_index":0}`, ErrUnknownKind},
		{"missing kind", `{"stage_index":0}`, ErrUnknownKind},
		{"missing index", `{"event_type":"stage_start"}`, ErrMissingStageIndex},
		{"negative index", `{"event_type":"stage_complete","stage_index":-1}`, ErrMissingStageIndex},
		{"huge index", `{"event_type":"stage_error","stage_index":99999999}`, ErrMissingStageIndex},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decode(t, tc.payload)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMarshal_RoundTripsThroughDecode(t *testing.T) {
	in := StageError{Header: Header{ExecutionID: "e9"}, Index: 3, Name: "filter", Error: "bad"}
	b, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := decode(t, string(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	se, ok := out.(StageError)
	if !ok || se.Index != 3 || se.Name != "filter" || se.Error != "bad" || se.ExecutionID != "e9" {
		t.Fatalf("round trip = %#v", out)
	}
}
