package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/notebook-translator/internal/batch"
	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/segment"
	"github.com/MimeLyc/notebook-translator/internal/translator"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

type counters struct {
	batches atomic.Int64
	calls   atomic.Int64
	retries atomic.Int64
}

// pass sends a set of spans through the client in one mode. Each batch
// writes only the span and failure slots of its own ids.
type pass struct {
	e     *Engine
	mode  translator.Mode
	spans []segment.Span
	fails []*Failure
	stats *counters
}

func (e *Engine) newPass(mode translator.Mode, spans []segment.Span, stats *counters) *pass {
	return &pass{
		e:     e,
		mode:  mode,
		spans: spans,
		fails: make([]*Failure, len(spans)),
		stats: stats,
	}
}

// run translates the spans named by ids. It returns an error only when the
// whole run must stop; every other problem ends up in p.fails.
func (p *pass) run(ctx context.Context, ids []int) error {
	subset := make([]segment.Span, len(ids))
	for i, id := range ids {
		subset[i] = p.spans[id]
	}
	batches, err := batch.Make(subset, p.e.cfg.BatchSize)
	if err != nil {
		return errs.Wrap(err, errs.FatalConfiguration, "split spans into batches")
	}
	p.stats.batches.Add(int64(len(batches)))
	log.Info("Dispatching %d spans in %d batches (mode %s, concurrency %d)",
		len(ids), len(batches), p.mode, p.e.cfg.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.e.cfg.Concurrency)
	for i, b := range batches {
		if err := gctx.Err(); err != nil {
			for _, rest := range batches[i:] {
				p.fail(rest.SpanIDs, "not sent: run cancelled", err)
			}
			break
		}
		g.Go(func() error {
			return p.runBatch(gctx, b, true)
		})
	}
	return g.Wait()
}

func (p *pass) runBatch(ctx context.Context, b batch.Batch, split bool) error {
	// g.Go may have waited for a slot while the run was cancelled
	if err := ctx.Err(); err != nil {
		p.fail(b.SpanIDs, "not sent: run cancelled", err)
		return nil
	}

	req := translator.Request{
		Items:          make([]translator.Item, 0, b.Len()),
		TargetLanguage: p.e.cfg.TargetLanguage,
		Mode:           p.mode,
	}
	for _, id := range b.SpanIDs {
		s := p.spans[id]
		req.Items = append(req.Items, translator.Item{ID: id, Kind: s.Kind, Text: s.Source})
	}

	res, err := p.submit(ctx, b, req)
	missing := p.accept(b.SpanIDs, res)
	if len(missing) == 0 {
		return nil
	}
	if err == nil {
		err = errs.New(errs.InvalidResponse, "response is missing items").
			WithContext("missing", len(missing))
	}

	switch {
	case errs.Aborts(err):
		return err
	case ctx.Err() != nil:
		p.fail(missing, "not translated: run cancelled", ctx.Err())
		return nil
	case errs.Is(err, errs.InvalidResponse) && split && b.Len() > 1:
		log.Warn("Batch %d (%s) returned an incomplete response, resubmitting %d spans one by one: %v",
			b.Index, p.mode, len(missing), err)
		for _, single := range batch.Singles(missing, b.Index) {
			if err := p.runBatch(ctx, single, false); err != nil {
				return err
			}
		}
		return nil
	default:
		log.Warn("Batch %d (%s) failed, %d spans keep their source text: %v", b.Index, p.mode, len(missing), err)
		p.fail(missing, err.Error(), err)
		return nil
	}
}

// submit calls the client, retrying transient errors with exponential backoff.
func (p *pass) submit(ctx context.Context, b batch.Batch, req translator.Request) (translator.Result, error) {
	policy := p.e.cfg.Retry
	for attempt := 1; ; attempt++ {
		p.stats.calls.Add(1)
		res, err := p.e.client.Submit(ctx, req)
		if err == nil || !errs.Retryable(err) || ctx.Err() != nil {
			return res, err
		}
		if attempt >= policy.MaxAttempts {
			return res, errs.Wrap(err, errs.Transient, "retries exhausted").
				WithContext("attempts", attempt)
		}

		wait := policy.Backoff(attempt)
		p.stats.retries.Add(1)
		log.Warn("Batch %d (%s) failed with a transient error, retry %d/%d in %s: %v",
			b.Index, p.mode, attempt, policy.MaxAttempts-1, wait, err)
		if err := p.e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// accept stores the usable entries of res and returns the ids left without one.
func (p *pass) accept(ids []int, res translator.Result) []int {
	var missing []int
	for _, id := range ids {
		text, ok := res[id]
		if !ok || strings.TrimSpace(text) == "" {
			missing = append(missing, id)
			continue
		}
		p.spans[id].Translated = text
		p.spans[id].Done = true
		p.fails[id] = nil
	}
	return missing
}

func (p *pass) fail(ids []int, reason string, err error) {
	for _, id := range ids {
		s := p.spans[id]
		p.fails[id] = &Failure{
			SpanID:    id,
			Kind:      s.Kind,
			Origin:    s.Origin,
			Reason:    reason,
			ErrorKind: errs.KindOf(err),
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
