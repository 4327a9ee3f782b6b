package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

// Failure is a span that kept its source text.
type Failure struct {
	SpanID    int
	Kind      segment.SpanKind
	Origin    segment.Origin
	Reason    string
	ErrorKind errs.Kind
}

func (f Failure) String() string {
	return fmt.Sprintf("%s (%s #%d): %s", f.Origin, f.Kind, f.SpanID, f.Reason)
}

type Stats struct {
	ProseFragments      int
	ExecutableFragments int

	Spans      int
	Translated int
	Failed     int
	Skipped    int

	Batches     int
	Calls       int
	Retries     int
	Naturalized int
	MemoryHits  int

	// SourceLanguage is the detected language of the prose, empty when unreliable.
	SourceLanguage  string
	SourceChars     int
	TranslatedChars int
	Duration        time.Duration
}

// PreviewItem is one changed span shown to the user.
type PreviewItem struct {
	SpanID     int
	Origin     segment.Origin
	Original   string
	Translated string
}

type Report struct {
	TargetLanguage string
	Failures       []Failure
	Stats          Stats
	Preview        []PreviewItem
	Cancelled      bool
}

// PartialSuccess reports whether some content was left untranslated.
func (r *Report) PartialSuccess() bool {
	return r.Cancelled || len(r.Failures) > 0
}

func (r *Report) Summary() string {
	var b strings.Builder
	s := r.Stats
	fmt.Fprintf(&b, "target language: %s\n", r.TargetLanguage)
	if s.SourceLanguage != "" {
		fmt.Fprintf(&b, "source language: %s\n", s.SourceLanguage)
	}
	fmt.Fprintf(&b, "fragments: %d prose, %d executable\n", s.ProseFragments, s.ExecutableFragments)
	fmt.Fprintf(&b, "spans: %d (translated %d, failed %d, skipped %d, from memory %d)\n",
		s.Spans, s.Translated, s.Failed, s.Skipped, s.MemoryHits)
	fmt.Fprintf(&b, "batches: %d, calls: %d, retries: %d, naturalized: %d\n",
		s.Batches, s.Calls, s.Retries, s.Naturalized)
	fmt.Fprintf(&b, "characters: %d -> %d\n", s.SourceChars, s.TranslatedChars)
	fmt.Fprintf(&b, "duration: %s\n", s.Duration.Round(time.Millisecond))
	if r.Cancelled {
		b.WriteString("run was cancelled before all batches were sent\n")
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "warning: %s\n", f)
	}
	return b.String()
}

// Result is the outcome of a run. Document is always structurally valid and
// holds the source text wherever a span failed.
type Result struct {
	Document *notebook.Document
	Plan     *segment.Plan
	Report   Report
}

const previewWidth = 80

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}
