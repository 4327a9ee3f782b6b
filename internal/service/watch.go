package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/notebook-translator/pkg/file"
	"github.com/MimeLyc/notebook-translator/pkg/icron"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// Watcher re-translates notebooks that changed since their last translation,
// on a cron schedule.
type Watcher struct {
	engine   *Engine
	cron     *cron.Cron
	cronExpr string
	inputs   []string
	group    singleflight.Group

	// OnResult, when set, is called after each translated notebook.
	OnResult func(input string, res *Result, err error)
}

func NewWatcher(engine *Engine, c *cron.Cron, cronExpr string, inputs []string) (*Watcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}
	if _, err := icron.Parse(cronExpr); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no notebooks to watch")
	}
	return &Watcher{
		engine:   engine,
		cron:     c,
		cronExpr: cronExpr,
		inputs:   append([]string(nil), inputs...),
	}, nil
}

// Schedule registers the watcher on its cron. The caller starts and stops the cron.
func (w *Watcher) Schedule(ctx context.Context) error {
	info, err := icron.GetTriggerInfo(w.cronExpr, time.Now())
	if err != nil {
		return err
	}
	log.Info("Watching %d notebooks, next check at %s", len(w.inputs), info.Next.Format(time.DateTime))

	_, err = w.cron.AddFunc(w.cronExpr, func() {
		w.RunOnce(ctx)
	})
	return err
}

// RunOnce translates every stale notebook and returns the ones that produced a result.
// A notebook that is still being translated by an earlier call is not started twice.
// A partially translated notebook stays stale and is translated again next time.
func (w *Watcher) RunOnce(ctx context.Context) []string {
	stale, err := file.StaleOutputs(w.inputs, w.engine.OutputPath)
	if err != nil {
		log.Error("Failed to check notebooks: %v", err)
		return nil
	}
	if len(stale) == 0 {
		log.Debug("All %d notebooks are up to date", len(w.inputs))
		return nil
	}

	var written []string
	for _, input := range stale {
		if ctx.Err() != nil {
			break
		}
		v, err, _ := w.group.Do(input, func() (any, error) {
			log.Info("Translating %s", input)
			res, err := w.engine.TranslateFile(ctx, input, "")
			if res != nil && res.Report.PartialSuccess() {
				// retry the texts that kept their source on the next check
				if err := file.MarkStale(input, w.engine.OutputPath(input)); err != nil {
					log.Warn("Failed to mark %s for retry: %v", input, err)
				}
			}
			return res, err
		})
		res, _ := v.(*Result)
		if err != nil {
			log.Error("Failed to translate %s: %v", input, err)
		}
		if res != nil {
			written = append(written, input)
		}
		if w.OnResult != nil {
			w.OnResult(input, res, err)
		}
	}
	return written
}
