package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

// Completer sends one system+user prompt pair and returns the reply text.
// Errors are *errs.Error of kind Transient or FatalConfiguration, or the
// context's error when ctx ended.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds the completer for cfg.Provider wrapped in a circuit breaker.
func New(ctx context.Context, cfg *Config) (Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(err, errs.FatalConfiguration, "invalid configuration")
	}

	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		c, err = NewGemini(ctx, cfg)
	default:
		c = NewOpenAI(cfg)
	}
	if err != nil {
		return nil, err
	}
	return NewBreaker(c, cfg.Provider, cfg.BreakerFailures, cfg.BreakerCooldown), nil
}

// headerTransport adds static headers to every request.
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) errs.Kind {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusPaymentRequired:
		return errs.FatalConfiguration
	case status == http.StatusBadRequest:
		// oversized prompts come back as 400
		return errs.InvalidResponse
	default:
		return errs.Transient
	}
}

func statusError(provider string, status int, msg string, cause error) *errs.Error {
	return errs.Wrap(cause, classifyStatus(status), fmt.Sprintf("%s request failed: %s", provider, msg)).
		WithContext("status", status)
}
