package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const DefaultSettingsFile = "nbtrans.yaml"

// Settings is the optional YAML settings file. Empty fields leave the
// environment value in place.
type Settings struct {
	Provider       string `yaml:"provider,omitempty"`
	APIURL         string `yaml:"api_url,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TargetLanguage string `yaml:"target_language,omitempty"`
	SourceLanguage string `yaml:"source_language,omitempty"`
	BatchSize      int    `yaml:"batch_size,omitempty"`
	Concurrency    int    `yaml:"concurrency,omitempty"`
	CodeComments   *bool  `yaml:"code_comments,omitempty"`
	Naturalize     *bool  `yaml:"naturalize,omitempty"`
	Glossary       string `yaml:"glossary,omitempty"`
	Memory         string `yaml:"memory,omitempty"`
	MaxAttempts    int    `yaml:"max_attempts,omitempty"`
	InitialBackoff string `yaml:"initial_backoff,omitempty"`
	MinTextLength  *int   `yaml:"min_text_length,omitempty"`
	SkipCodeOnly   *bool  `yaml:"skip_code_only,omitempty"`
	WatchCron      string `yaml:"watch_cron,omitempty"`
}

func (s Settings) Validate() error {
	if s.Provider != "" && s.Provider != "openai" && s.Provider != "gemini" {
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.TargetLanguage != "" {
		if _, err := language.Parse(s.TargetLanguage); err != nil {
			return fmt.Errorf("invalid target_language: %w", err)
		}
	}
	if s.BatchSize < 0 || s.Concurrency < 0 || s.MaxAttempts < 0 {
		return fmt.Errorf("batch_size, concurrency and max_attempts must not be negative")
	}
	if s.InitialBackoff != "" {
		if _, err := time.ParseDuration(s.InitialBackoff); err != nil {
			return fmt.Errorf("invalid initial_backoff: %w", err)
		}
	}
	return nil
}

// WithSettings overlays the non-empty fields of s.
func WithSettings(s Settings) Option {
	return func(c *Config) {
		if s.Provider != "" {
			c.LLM.Provider = s.Provider
		}
		if strings.TrimSpace(s.APIURL) != "" {
			c.LLM.APIURL = s.APIURL
		}
		if strings.TrimSpace(s.Model) != "" {
			c.LLM.Model = s.Model
		}
		if s.TargetLanguage != "" {
			c.Translate.TargetLanguage = s.TargetLanguage
		}
		if s.SourceLanguage != "" {
			c.Translate.SourceLanguage = s.SourceLanguage
		}
		if s.BatchSize > 0 {
			c.Translate.BatchSize = s.BatchSize
		}
		if s.Concurrency > 0 {
			c.Translate.Concurrency = s.Concurrency
		}
		if s.CodeComments != nil {
			c.Translate.TranslateCodeComments = *s.CodeComments
		}
		if s.Naturalize != nil {
			c.Translate.Naturalize = *s.Naturalize
		}
		if s.Glossary != "" {
			c.Translate.GlossaryFile = s.Glossary
		}
		if s.Memory != "" {
			c.Translate.MemoryDB = s.Memory
		}
		if s.MaxAttempts > 0 {
			c.Retry.MaxAttempts = s.MaxAttempts
		}
		if d, err := time.ParseDuration(s.InitialBackoff); err == nil {
			c.Retry.InitialBackoff = d
		}
		if s.MinTextLength != nil {
			c.Skip.MinTextLength = *s.MinTextLength
		}
		if s.SkipCodeOnly != nil {
			c.Skip.SkipCodeOnly = *s.SkipCodeOnly
		}
		if s.WatchCron != "" {
			c.System.WatchCron = s.WatchCron
		}
	}
}

func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return settings, nil
}

func WriteSettingsFile(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
