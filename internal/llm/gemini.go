package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

// Gemini completes prompts with the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    *Config
}

func NewGemini(ctx context.Context, cfg *Config) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
	if cfg.APIURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errs.Wrap(err, errs.FatalConfiguration, "create gemini client")
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(g.cfg.Temperature)),
		MaxOutputTokens:   int32(g.cfg.MaxTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(user), genCfg)
	if err != nil {
		return "", classifyGeminiError(ctx, err)
	}

	text := resp.Text()
	if text == "" {
		return "", errs.New(errs.InvalidResponse, "empty gemini response")
	}
	return text, nil
}

func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(ProviderGemini, apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError(ProviderGemini, apiErrPtr.Code, apiErrPtr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(err, errs.Transient, "gemini request timed out")
	}
	return errs.Wrap(err, errs.Transient, "gemini request failed")
}
