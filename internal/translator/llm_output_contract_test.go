package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

func items(texts ...string) []Item {
	out := make([]Item, len(texts))
	for i, t := range texts {
		out[i] = Item{ID: i + 10, Kind: segment.ProseSpan, Text: t}
	}
	return out
}

func TestBuildUserMessage_IndexedJSON(t *testing.T) {
	t.Parallel()

	payload, err := buildUserMessage([]Item{
		{ID: 3, Kind: segment.ProseSpan, Text: "line-1"},
		{ID: 4, Kind: segment.CommentSpan, Text: "line-2"},
	})
	require.NoError(t, err)

	var got struct {
		Items []struct {
			ID   int    `json:"id"`
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, 3, got.Items[0].ID)
	assert.Equal(t, "prose", got.Items[0].Kind)
	assert.Equal(t, "line-2", got.Items[1].Text)
	assert.Equal(t, "comment", got.Items[1].Kind)
}

func TestParseOutput_IndexedJSONReordered(t *testing.T) {
	t.Parallel()

	got, err := parseOutput(`[{"id":11,"text":"세계"},{"id":10,"text":"안녕"}]`, items("hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Result{10: "안녕", 11: "세계"}, got)
}

func TestParseOutput_WrappedObjectInFence(t *testing.T) {
	t.Parallel()

	raw := "Here are the translations:\n```json\n{\"items\":[{\"id\":10,\"text\":\"안녕\"}]}\n```"
	got, err := parseOutput(raw, items("hello"))
	require.NoError(t, err)
	assert.Equal(t, Result{10: "안녕"}, got)
}

func TestParseOutput_StringArrayFallback(t *testing.T) {
	t.Parallel()

	got, err := parseOutput(`["안녕","세계"]`, items("hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, Result{10: "안녕", 11: "세계"}, got)

	_, err = parseOutput(`["안녕"]`, items("hello", "world"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidResponse))
	assert.Contains(t, err.Error(), "mismatch")
}

func TestParseOutput_MissingReturnsPartial(t *testing.T) {
	t.Parallel()

	got, err := parseOutput(`[{"id":10,"text":"안녕"},{"id":99,"text":"??"}]`, items("hello", "world"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidResponse))
	assert.Contains(t, err.Error(), "missing=[11]")
	assert.Contains(t, err.Error(), "unknown=[99]")
	assert.Equal(t, Result{10: "안녕"}, got)
}

func TestParseOutput_DuplicateIndex(t *testing.T) {
	t.Parallel()

	got, err := parseOutput(`[{"id":10,"text":"A"},{"id":10,"text":"B"},{"id":11,"text":"C"}]`, items("a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	assert.Equal(t, Result{11: "C"}, got)
}

func TestParseOutput_EmptyAndGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseOutput("   ", items("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	_, err = parseOutput("I cannot help with that.", items("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json")
	assert.True(t, errs.Is(err, errs.InvalidResponse))
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, source, text, want string
	}{
		{"wrapping quotes", "set x", `"x 설정"`, "x 설정"},
		{"quotes kept when source quoted", `"quoted"`, `"인용"`, `"인용"`},
		{"curly quotes", "hello", "“안녕”", "안녕"},
		{"prefix", "Hello", "Translation: 안녕", "안녕"},
		{"suffix", "Hello", "안녕 Translation complete.", "안녕"},
		{"edges restored", "\nHello world\n", "안녕 세계", "\n안녕 세계\n"},
		{"lone quote untouched", "a", `"`, `"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.source, tt.text))
		})
	}
}
