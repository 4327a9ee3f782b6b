package service

import (
	"context"
	"fmt"

	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// OutputPath is where TranslateFile writes the translation of input by default.
func (e *Engine) OutputPath(input string) string {
	return notebook.OutputPath(input, e.cfg.TargetLanguage)
}

// TranslateFile loads the notebook at input, translates it and writes the
// result to output (OutputPath when empty). Partial results are written too;
// the run error is returned alongside them.
func (e *Engine) TranslateFile(ctx context.Context, input, output string) (*Result, error) {
	if output == "" {
		output = e.OutputPath(input)
	}

	doc, err := notebook.Load(input)
	if err != nil {
		return nil, err
	}

	res, runErr := e.Run(ctx, doc)
	if res == nil {
		return nil, runErr
	}
	if err := notebook.Write(output, res.Document); err != nil {
		return res, fmt.Errorf("failed to write translated notebook %s: %w", output, err)
	}
	log.Info("Wrote translated notebook %s", output)
	return res, runErr
}
