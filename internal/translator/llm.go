package translator

import (
	"context"

	"github.com/MimeLyc/notebook-translator/internal/glossary"
	"github.com/MimeLyc/notebook-translator/internal/llm"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// LLMClient implements Client on top of a chat completion model.
type LLMClient struct {
	completer llm.Completer
	glossary  glossary.Glossary
}

func NewLLMClient(completer llm.Completer, terms glossary.Glossary) *LLMClient {
	return &LLMClient{completer: completer, glossary: terms}
}

func (c *LLMClient) Submit(ctx context.Context, req Request) (Result, error) {
	if len(req.Items) == 0 {
		return Result{}, nil
	}

	texts := make([]string, len(req.Items))
	for i, it := range req.Items {
		texts[i] = it.Text
	}
	terms := glossary.Match(c.glossary, texts)

	user, err := buildUserMessage(req.Items)
	if err != nil {
		return nil, err
	}

	raw, err := c.completer.Complete(ctx, buildSystemPrompt(req, terms), user)
	if err != nil {
		return nil, err
	}

	result, err := parseOutput(raw, req.Items)
	if len(terms) > 0 {
		for _, it := range req.Items {
			if out, ok := result[it.ID]; ok {
				if missing := glossary.Violations(terms, it.Text, out); len(missing) > 0 {
					log.Warn("span %d ignores glossary terms %v", it.ID, missing)
				}
			}
		}
	}
	return result, err
}
