package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

func testConfig(url string) *Config {
	return &Config{
		Provider:    ProviderOpenAI,
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.3,
		Timeout:     30,
		SiteURL:     "https://example.com",
		AppName:     "nbtrans-test",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testConfig("https://api.example.com").Validate())

	tests := map[string]func(*Config){
		"unknown provider": func(c *Config) { c.Provider = "bedrock" },
		"missing key":      func(c *Config) { c.APIKey = "" },
		"missing url":      func(c *Config) { c.APIURL = "" },
		"missing model":    func(c *Config) { c.Model = "" },
		"zero tokens":      func(c *Config) { c.MaxTokens = 0 },
		"hot temperature":  func(c *Config) { c.Temperature = 2.5 },
		"zero timeout":     func(c *Config) { c.Timeout = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig("https://api.example.com")
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	gemini := testConfig("")
	gemini.Provider = ProviderGemini
	assert.NoError(t, gemini.Validate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{Provider: ProviderOpenAI})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.FatalConfiguration))
}

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "nbtrans-test", r.Header.Get("X-Title"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "hello", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "test-id",
			"object": "chat.completion",
			"created": 1234567890,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "안녕하세요"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	got, err := NewOpenAI(testConfig(server.URL)).Complete(context.Background(), "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", got)
}

func TestOpenAIErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   errs.Kind
	}{
		{http.StatusUnauthorized, errs.FatalConfiguration},
		{http.StatusNotFound, errs.FatalConfiguration},
		{http.StatusTooManyRequests, errs.Transient},
		{http.StatusBadGateway, errs.Transient},
		{http.StatusBadRequest, errs.InvalidResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "test_error"}}`))
			}))
			defer server.Close()

			_, err := NewOpenAI(testConfig(server.URL)).Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.KindOf(err), err.Error())
		})
	}
}

func TestOpenAITruncatedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "[{\"id\":0"}, "finish_reason": "length"}]}`))
	}))
	defer server.Close()

	_, err := NewOpenAI(testConfig(server.URL)).Complete(context.Background(), "s", "u")
	assert.True(t, errs.Is(err, errs.InvalidResponse))
}

func TestOpenAICancelledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOpenAI(testConfig(server.URL)).Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeminiComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "bonjour"}]}}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Provider = ProviderGemini
	cfg.Model = "gemini-test"
	g, err := NewGemini(context.Background(), cfg)
	require.NoError(t, err)

	got, err := g.Complete(context.Background(), "translate", "hello")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", got)
}

type stubCompleter struct {
	calls atomic.Int32
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestBreakerOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{err: errs.New(errs.Transient, "503")}
	b := NewBreaker(stub, "test", 2, time.Minute)

	for range 2 {
		_, err := b.Complete(context.Background(), "s", "u")
		assert.True(t, errs.Is(err, errs.Transient))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Complete(context.Background(), "s", "u")
	assert.True(t, errs.Is(err, errs.Transient))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.EqualValues(t, 2, stub.calls.Load())
}

func TestBreakerIgnoresNonTransientFailures(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{err: errs.New(errs.InvalidResponse, "bad json")}
	b := NewBreaker(stub, "test", 1, time.Minute)

	for range 3 {
		_, err := b.Complete(context.Background(), "s", "u")
		assert.True(t, errs.Is(err, errs.InvalidResponse))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.EqualValues(t, 3, stub.calls.Load())
}

func TestBreakerPassesResult(t *testing.T) {
	t.Parallel()

	got, err := NewBreaker(&stubCompleter{}, "test", 0, 0).Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
