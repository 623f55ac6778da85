package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/event"
)

func collect(t *testing.T, d *Decoder) []Signal {
	t.Helper()
	var out []Signal
	for d.Next() {
		out = append(out, d.Signal())
	}
	require.NoError(t, d.Err())
	return out
}

func TestDecoder_StageSequence(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"event_type":"stage_start","execution_id":"e1","stage_index":0,"stage_name":"search"}`,
		``,
		`data: {"event_type":"stage_complete","execution_id":"e1","stage_index":0,"documents":[{"id":"d1"}]}`,
		`data: {"event_type":"execution_complete","execution_id":"e1","documents":[{"id":"d1"}]}`,
		`data: [DONE]`,
		`data: {"event_type":"stage_start","stage_index":9}`,
		``,
	}, "\n")

	sigs := collect(t, NewDecoder(strings.NewReader(stream)))
	require.Len(t, sigs, 4)
	assert.Equal(t, event.KindStageStart, sigs[0].Event.Kind())
	assert.Equal(t, event.KindStageComplete, sigs[1].Event.Kind())
	assert.Equal(t, event.KindExecutionComplete, sigs[2].Event.Kind())
	assert.Equal(t, KindDone, sigs[3].Kind)
}

func TestDecoder_ReassemblesAcrossChunks(t *testing.T) {
	stream := "data: {\"event_type\":\"stage_start\",\"stage_index\":0,\"stage_name\":\"search\"}\r\n" +
		"data: {\"answer_chunk\":\"Hello \"}\n" +
		"data: {\"answer_chunk\":\"world\"}\n"

	d := NewDecoder(iotest.OneByteReader(strings.NewReader(stream)))
	sigs := collect(t, d)
	require.Len(t, sigs, 3)

	start, ok := sigs[0].Event.(event.StageStart)
	require.True(t, ok)
	assert.Equal(t, "search", start.Name)
	assert.Equal(t, KindAnswerChunk, sigs[1].Kind)
	assert.Equal(t, "Hello ", sigs[1].Text)
	assert.Equal(t, "world", sigs[2].Text)
}

func TestDecoder_DropsMalformedFrames(t *testing.T) {
	var skipped []string
	stream := strings.Join([]string{
		`: keep-alive comment`,
		`event: progress`,
		`data: {not json`,
		`data: {"event_type":"stage_teleport","stage_index":0}`,
		`data: {"event_type":"stage_start"}`,
		`data: {"unrelated":true}`,
		`data: {"event_type":"execution_error","error":"boom"}`,
		``,
	}, "\n")

	d := NewDecoder(strings.NewReader(stream), WithSkipHandler(func(payload []byte, err error) {
		assert.True(t, errors.Is(err, domain.ErrDecodeSkipped))
		skipped = append(skipped, string(payload))
	}))
	sigs := collect(t, d)

	require.Len(t, sigs, 1)
	ee, ok := sigs[0].Event.(event.ExecutionError)
	require.True(t, ok)
	assert.Equal(t, "boom", ee.Error)
	assert.Len(t, skipped, 4)
}

func TestDecoder_LegacyResults(t *testing.T) {
	stream := "data: {\"results\":[{\"id\":\"a\"},{\"id\":\"b\"}]}\n" +
		"data: {\"documents\":[{\"id\":\"c\"}]}\n" +
		"data: {\"results\":[]}\n"

	sigs := collect(t, NewDecoder(strings.NewReader(stream)))
	require.Len(t, sigs, 3)
	assert.Equal(t, KindResults, sigs[0].Kind)
	assert.Len(t, sigs[0].Documents, 2)
	assert.Equal(t, "c", sigs[1].Documents[0].ID())
	assert.NotNil(t, sigs[2].Documents)
	assert.Empty(t, sigs[2].Documents)
}

func TestDecoder_IncompleteTrailingFragmentIgnored(t *testing.T) {
	stream := "data: {\"answer_chunk\":\"a\"}\ndata: {\"answer_chunk\":\"b\"}"
	sigs := collect(t, NewDecoder(strings.NewReader(stream)))
	require.Len(t, sigs, 1)
	assert.Equal(t, "a", sigs[0].Text)
}

func TestDecoder_ReadErrorSurfaces(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("data: {\"answer_chunk\":\"a\"}\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)
	d := NewDecoder(r)
	require.True(t, d.Next())
	require.False(t, d.Next())
	require.Error(t, d.Err())
	assert.Contains(t, d.Err().Error(), "connection reset")
	assert.False(t, d.Next(), "decoder must not restart")
}

type closeTracker struct {
	io.Reader
	closes int
}

func (c *closeTracker) Close() error {
	c.closes++
	return nil
}

func TestDecoder_CloseIsIdempotent(t *testing.T) {
	src := &closeTracker{Reader: strings.NewReader("data: {\"answer_chunk\":\"a\"}\n")}
	d := NewDecoder(src)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, src.closes)
	assert.False(t, d.Next())
}

func TestClassify_AnswerChunkPrecedence(t *testing.T) {
	sig, err := Classify([]byte(`{"answer_chunk":"x","results":[{"id":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, KindAnswerChunk, sig.Kind)

	sig, err = Classify([]byte(`{"event_type":"execution_complete","documents":[{"id":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, KindEvent, sig.Kind, "stage events carrying documents are not legacy results")
}
