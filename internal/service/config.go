package service

import (
	"time"

	"golang.org/x/text/language"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

// RetryPolicy bounds the retries of a batch that failed with a transient error.
type RetryPolicy struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Backoff returns the wait before the given retry (1 for the first retry).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// Config is the per-run configuration of an Engine. It is copied on NewEngine
// and never changed afterwards.
type Config struct {
	TargetLanguage string
	BatchSize      int

	TranslateCodeComments     bool
	TranslateEmbeddedComments bool
	// CodeLanguage overrides the notebook kernel language for comment markers.
	CodeLanguage string

	Naturalize  bool
	Retry       RetryPolicy
	Concurrency int

	MinTextLength      int
	SkipPatterns       []string
	SkipTargetLanguage bool
	// SkipCodeOnly skips prose that holds no natural-language words.
	SkipCodeOnly bool

	// PreviewLimit is the number of changed spans kept in the report preview.
	PreviewLimit int
}

func DefaultConfig() Config {
	return Config{
		TargetLanguage:            "ko",
		BatchSize:                 20,
		TranslateEmbeddedComments: true,
		Naturalize:                true,
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2,
		},
		Concurrency:   1,
		MinTextLength: 2,
		SkipPatterns:  segment.DefaultSkipPatterns,
		PreviewLimit:  5,
	}
}

func (c Config) validate() error {
	if _, err := language.Parse(c.TargetLanguage); err != nil {
		return errs.Wrap(err, errs.FatalConfiguration, "invalid target language").
			WithContext("language", c.TargetLanguage)
	}
	if c.BatchSize <= 0 {
		return errs.New(errs.FatalConfiguration, "batch size must be > 0").
			WithContext("batch_size", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return errs.New(errs.FatalConfiguration, "concurrency must be > 0").
			WithContext("concurrency", c.Concurrency)
	}
	if c.Retry.MaxAttempts <= 0 {
		return errs.New(errs.FatalConfiguration, "max attempts must be > 0").
			WithContext("max_attempts", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 {
		return errs.New(errs.FatalConfiguration, "backoff must not be negative")
	}
	if c.Retry.Multiplier < 1 {
		return errs.New(errs.FatalConfiguration, "backoff multiplier must be >= 1").
			WithContext("multiplier", c.Retry.Multiplier)
	}
	if c.MinTextLength < 0 {
		return errs.New(errs.FatalConfiguration, "min text length must not be negative")
	}
	return nil
}

func (c Config) skipRules() (segment.SkipRules, error) {
	target := ""
	if c.SkipTargetLanguage {
		target = c.TargetLanguage
	}
	rules, err := segment.NewSkipRules(c.MinTextLength, c.SkipPatterns, target)
	if err != nil {
		return segment.SkipRules{}, errs.Wrap(err, errs.FatalConfiguration, "invalid skip rules")
	}
	rules.CodeOnly = c.SkipCodeOnly
	return rules, nil
}

// memoryVariant keys stored translations by whether they went through naturalization.
func (c Config) memoryVariant() string {
	if c.Naturalize {
		return "natural"
	}
	return "raw"
}
