package translator

import (
	"context"

	"github.com/MimeLyc/notebook-translator/internal/segment"
)

type Mode string

const (
	ModeTranslate  Mode = "translate"
	ModeNaturalize Mode = "naturalize"
)

type Item struct {
	ID   int
	Kind segment.SpanKind
	Text string
}

type Request struct {
	Items          []Item
	TargetLanguage string
	Mode           Mode
}

// Result maps span ids to their translated text.
type Result map[int]string

// Client submits one batch to the translation service.
//
// Errors are *errs.Error values: Transient (retry later), InvalidResponse
// (the returned Result holds the entries that could be matched) or
// FatalConfiguration (stop everything).
type Client interface {
	Submit(ctx context.Context, req Request) (Result, error)
}
