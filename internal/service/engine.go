package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/reassemble"
	"github.com/MimeLyc/notebook-translator/internal/segment"
	"github.com/MimeLyc/notebook-translator/internal/translator"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// Engine translates notebooks. One Engine may run several documents, one
// after another or concurrently; runs share nothing but the client and the
// memory store.
type Engine struct {
	cfg     Config
	rules   segment.SkipRules
	client  translator.Client
	scanner segment.CommentScanner
	memory  MemoryStore
	sleep   func(context.Context, time.Duration) error
}

type Option func(*Engine)

// WithMemory reuses translations stored by earlier runs and records new ones.
func WithMemory(store MemoryStore) Option {
	return func(e *Engine) {
		e.memory = store
	}
}

// WithCommentScanner replaces the default line comment scanner.
func WithCommentScanner(s segment.CommentScanner) Option {
	return func(e *Engine) {
		e.scanner = s
	}
}

func NewEngine(cfg Config, client translator.Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errs.New(errs.FatalConfiguration, "translation client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rules, err := cfg.skipRules()
	if err != nil {
		return nil, err
	}

	cfg.SkipPatterns = slices.Clone(cfg.SkipPatterns)
	e := &Engine{
		cfg:     cfg,
		rules:   rules,
		client:  client,
		scanner: segment.NewLineCommentScanner(nil),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Run translates doc. The returned document is a new value and doc is left
// unchanged.
//
// A FatalConfiguration or MalformedDocument error aborts the run and no
// result is returned. When ctx is cancelled, Run stops sending batches and
// returns the partially translated result together with the context error.
// Every other failure is contained in the report.
func (e *Engine) Run(ctx context.Context, doc *notebook.Document) (*Result, error) {
	start := time.Now()
	if doc == nil {
		return nil, errs.New(errs.MalformedDocument, "document is nil")
	}

	codeLang := e.cfg.CodeLanguage
	if codeLang == "" {
		codeLang = doc.Language()
	}
	plan, err := segment.Extract(doc, segment.Options{
		TranslateCodeComments:     e.cfg.TranslateCodeComments,
		TranslateEmbeddedComments: e.cfg.TranslateEmbeddedComments,
		CodeLanguage:              codeLang,
		Scanner:                   e.scanner,
		Rules:                     e.rules,
	})
	if err != nil {
		return nil, err
	}

	report := Report{TargetLanguage: e.cfg.TargetLanguage}
	report.Stats.Spans = len(plan.Spans)
	report.Stats.Skipped = plan.Skipped
	report.Stats.SourceLanguage = detectSourceLanguage(plan.Spans)
	for _, fp := range plan.Fragments {
		if fp.Kind == notebook.Prose {
			report.Stats.ProseFragments++
		} else {
			report.Stats.ExecutableFragments++
		}
	}
	log.Info("Extracted %d spans from %d fragments (%d skipped)", len(plan.Spans), len(plan.Fragments), plan.Skipped)

	mem := e.openMemory(ctx)
	recalled := recall(mem, plan.Spans)
	var pending []int
	for _, s := range plan.Spans {
		if recalled[s.ID] {
			report.Stats.MemoryHits++
			continue
		}
		pending = append(pending, s.ID)
	}

	stats := &counters{}
	fails := make([]*Failure, len(plan.Spans))
	if len(pending) > 0 {
		primary := e.newPass(translator.ModeTranslate, plan.Spans, stats)
		if err := primary.run(ctx, pending); err != nil {
			log.Error("Run aborted: %v", err)
			return nil, err
		}
		fails = primary.fails
	}

	cancelled := ctx.Err() != nil
	var naturalized []bool
	if e.cfg.Naturalize && !cancelled {
		naturalized = e.naturalize(ctx, plan.Spans, recalled, stats)
		cancelled = ctx.Err() != nil
	}

	out, rejections, err := reassemble.Assemble(doc, plan)
	if err != nil {
		log.Error("Reassembly failed: %v", err)
		return nil, err
	}
	rejected := make([]bool, len(plan.Spans))
	for _, r := range rejections {
		s := plan.Spans[r.SpanID]
		rejected[r.SpanID] = true
		fails[r.SpanID] = &Failure{
			SpanID:    s.ID,
			Kind:      s.Kind,
			Origin:    s.Origin,
			Reason:    r.Reason,
			ErrorKind: errs.InvalidResponse,
		}
	}

	var learned []segment.Span
	for _, s := range plan.Spans {
		if !s.Done || rejected[s.ID] {
			if fails[s.ID] == nil {
				fails[s.ID] = &Failure{SpanID: s.ID, Kind: s.Kind, Origin: s.Origin, Reason: "not translated"}
			}
			report.Failures = append(report.Failures, *fails[s.ID])
			continue
		}
		report.Stats.Translated++
		report.Stats.SourceChars += utf8.RuneCountInString(s.Source)
		report.Stats.TranslatedChars += utf8.RuneCountInString(s.Translated)
		if naturalized != nil && naturalized[s.ID] {
			report.Stats.Naturalized++
		}
		if !recalled[s.ID] && (!e.cfg.Naturalize || s.Kind == segment.CommentSpan || (naturalized != nil && naturalized[s.ID])) {
			learned = append(learned, s)
		}
		if len(report.Preview) < e.cfg.PreviewLimit && s.Translated != s.Source {
			report.Preview = append(report.Preview, PreviewItem{
				SpanID:     s.ID,
				Origin:     s.Origin,
				Original:   truncate(s.Source, previewWidth),
				Translated: truncate(s.Translated, previewWidth),
			})
		}
	}
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].SpanID < report.Failures[j].SpanID })
	report.Stats.Failed = len(report.Failures)

	if mem != nil && len(learned) > 0 {
		if err := mem.Save(context.WithoutCancel(ctx), learned); err != nil {
			log.Warn("Failed to update translation memory: %v", err)
		}
	}

	report.Stats.Batches = int(stats.batches.Load())
	report.Stats.Calls = int(stats.calls.Load())
	report.Stats.Retries = int(stats.retries.Load())
	report.Stats.Duration = time.Since(start)
	report.Cancelled = cancelled

	res := &Result{Document: out, Plan: plan, Report: report}
	log.Info("Run finished: %d/%d spans translated, %d failed, %d calls",
		report.Stats.Translated, report.Stats.Spans, report.Stats.Failed, report.Stats.Calls)
	if cancelled {
		return res, ctx.Err()
	}
	return res, nil
}

// naturalize rewrites the translated prose spans in naturalize mode. A span
// keeps its primary translation when its rewrite fails or loses placeholders.
func (e *Engine) naturalize(ctx context.Context, spans []segment.Span, recalled []bool, stats *counters) []bool {
	var ids []int
	draft := slices.Clone(spans)
	for _, s := range spans {
		if s.Kind != segment.ProseSpan || !s.Done || recalled[s.ID] {
			continue
		}
		ids = append(ids, s.ID)
		draft[s.ID].Source = s.Translated
		draft[s.ID].Translated = ""
		draft[s.ID].Done = false
	}
	if len(ids) == 0 {
		return nil
	}

	p := e.newPass(translator.ModeNaturalize, draft, stats)
	if err := p.run(ctx, ids); err != nil {
		log.Warn("Naturalization stopped, keeping primary translations: %v", err)
		return nil
	}

	done := make([]bool, len(spans))
	kept := 0
	for _, id := range ids {
		d := draft[id]
		if !d.Done || !slices.Equal(segment.FindPlaceholders(d.Source), segment.FindPlaceholders(d.Translated)) {
			kept++
			continue
		}
		spans[id].Translated = d.Translated
		done[id] = true
	}
	if kept > 0 {
		log.Warn("Naturalization kept the primary translation of %d of %d spans", kept, len(ids))
	}
	return done
}

func (e *Engine) openMemory(ctx context.Context) *runMemory {
	if e.memory == nil {
		return nil
	}
	mem, err := newRunMemory(ctx, e.memory, e.cfg.TargetLanguage, e.cfg.memoryVariant())
	if err != nil {
		log.Warn("Translation memory disabled for this run: %v", err)
		return nil
	}
	return mem
}

// recall fills spans from memory and reports which ones were found.
func recall(mem *runMemory, spans []segment.Span) []bool {
	found := make([]bool, len(spans))
	if mem == nil {
		return found
	}
	for i := range spans {
		if text, ok := mem.Lookup(spans[i].Kind, spans[i].Source); ok {
			spans[i].Translated = text
			spans[i].Done = true
			found[i] = true
		}
	}
	return found
}

func detectSourceLanguage(spans []segment.Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Kind != segment.ProseSpan {
			continue
		}
		b.WriteString(s.Source)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return segment.DetectLanguage(b.String())
}
