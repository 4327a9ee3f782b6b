package translator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/glossary"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func TestLLMClientSubmit(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	m.On("Complete", mock.Anything,
		mock.MatchedBy(func(system string) bool {
			return containsAll(system,
				"Translate each item to Korean",
				`"Neural Network" → "신경망"`,
				"KOREAN STYLE",
				"<<<CODE_BLOCK_0>>>",
			) && !strings.Contains(system, "Unused Term")
		}),
		`{"items":[{"id":0,"kind":"prose","text":"A Neural Network"},{"id":1,"kind":"comment","text":"set x"}]}`,
	).Return(`[{"id":0,"text":"신경망"},{"id":1,"text":"x 설정"}]`, nil).Once()

	c := NewLLMClient(m, glossary.Glossary{"Neural Network": "신경망", "Unused Term": "미사용"})
	got, err := c.Submit(context.Background(), Request{
		Items: []Item{
			{ID: 0, Kind: segment.ProseSpan, Text: "A Neural Network"},
			{ID: 1, Kind: segment.CommentSpan, Text: "set x"},
		},
		TargetLanguage: "ko",
		Mode:           ModeTranslate,
	})
	require.NoError(t, err)
	assert.Equal(t, Result{0: "신경망", 1: "x 설정"}, got)
	m.AssertExpectations(t)
}

func TestLLMClientNaturalizePrompt(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	m.On("Complete", mock.Anything,
		mock.MatchedBy(func(system string) bool {
			return strings.Contains(system, "native French editor") &&
				!strings.Contains(system, "KOREAN STYLE") &&
				!strings.Contains(system, "=== TERMINOLOGY")
		}),
		mock.Anything,
	).Return(`[{"id":5,"text":"Bonjour"}]`, nil).Once()

	got, err := NewLLMClient(m, nil).Submit(context.Background(), Request{
		Items:          []Item{{ID: 5, Kind: segment.ProseSpan, Text: "Salut"}},
		TargetLanguage: "fr",
		Mode:           ModeNaturalize,
	})
	require.NoError(t, err)
	assert.Equal(t, Result{5: "Bonjour"}, got)
	m.AssertExpectations(t)
}

func TestLLMClientPropagatesErrors(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errs.New(errs.FatalConfiguration, "bad key")).Once()

	_, err := NewLLMClient(m, nil).Submit(context.Background(), Request{Items: items("a"), TargetLanguage: "ko"})
	assert.True(t, errs.Is(err, errs.FatalConfiguration))
}

func TestLLMClientEmptyRequest(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	got, err := NewLLMClient(m, nil).Submit(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, got)
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestFakeClient(t *testing.T) {
	t.Parallel()

	f := &FakeClient{Prefix: "ko:"}
	got, err := f.Submit(context.Background(), Request{Items: items("a", "b")})
	require.NoError(t, err)
	assert.Equal(t, Result{10: "ko:a", 11: "ko:b"}, got)

	f.Respond = func(call int, req Request) (Result, error) {
		return nil, errors.New("boom")
	}
	_, err = f.Submit(context.Background(), Request{Items: items("c")})
	assert.Error(t, err)
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, []int{10}, IDs(f.Requests()[1]))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Submit(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, f.Calls())
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Korean", LanguageName("ko"))
	assert.Equal(t, "French", LanguageName("fr"))
	assert.Equal(t, "not-a-tag!", LanguageName("not-a-tag!"))
	assert.True(t, IsKorean("ko-KR"))
	assert.False(t, IsKorean("ja"))
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
