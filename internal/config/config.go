package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/llm"
	"github.com/MimeLyc/notebook-translator/internal/segment"
	"github.com/MimeLyc/notebook-translator/internal/service"
	"github.com/MimeLyc/notebook-translator/pkg/icron"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables with defaults, then from an
// optional settings file, then from command line flags.
//
// Environment Variables:
// LLM Configuration: see llm.Config (LLM_PROVIDER, LLM_API_KEY, LLM_API_URL,
// LLM_MODEL, LLM_MAX_TOKENS, LLM_TEMPERATURE, LLM_TIMEOUT, LLM_SITE_URL,
// LLM_APP_NAME, BREAKER_FAILURES, BREAKER_COOLDOWN).
//
// Translate Configuration:
// - TARGET_LANGUAGE: target language code (default: ko)
// - SOURCE_LANGUAGE: source language code, used to find glossary files (default: en)
// - BATCH_SIZE: maximum spans per request (default: 20)
// - BATCH_CONCURRENCY: requests in flight at once (default: 1)
// - TRANSLATE_CODE_COMMENTS: translate comments of code cells (default: false)
// - TRANSLATE_EMBEDDED_COMMENTS: translate comments of code blocks in markdown (default: true)
// - ENABLE_NATURALIZE: run the naturalization pass (default: true)
// - CODE_LANGUAGE: comment syntax of code cells (default: notebook kernel language)
// - GLOSSARY_FILE: glossary JSON or YAML file (optional)
// - MEMORY_DB: translation memory database (optional, disabled when empty)
//
// Retry Configuration:
// - MAX_ATTEMPTS: calls per batch including the first (default: 3)
// - RETRY_INITIAL_BACKOFF: first wait (default: 1s)
// - RETRY_MAX_BACKOFF: longest wait (default: 30s)
// - RETRY_MULTIPLIER: backoff growth (default: 2)
//
// Skip Configuration:
// - MIN_TEXT_LENGTH: minimum characters of a translatable text (default: 2)
// - SKIP_TARGET_LANGUAGE: skip texts already in the target language (default: false)
// - SKIP_CODE_ONLY: skip markdown that holds no natural-language words (default: false)
//
// System Configuration:
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: write logs to this file instead of stderr (optional)
// - WATCH_CRON: schedule of the watch command (default: */10 * * * *)
type Config struct {
	LLM       llm.Config      `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Retry     RetryConfig     `json:"retry"`
	Skip      SkipConfig      `json:"skip"`
	System    SystemConfig    `json:"system"`
}

type TranslateConfig struct {
	TargetLanguage            string `json:"target_language"`
	SourceLanguage            string `json:"source_language"`
	BatchSize                 int    `json:"batch_size"`
	Concurrency               int    `json:"concurrency"`
	TranslateCodeComments     bool   `json:"translate_code_comments"`
	TranslateEmbeddedComments bool   `json:"translate_embedded_comments"`
	Naturalize                bool   `json:"naturalize"`
	CodeLanguage              string `json:"code_language"`
	GlossaryFile              string `json:"glossary_file"`
	MemoryDB                  string `json:"memory_db"`
	PreviewLimit              int    `json:"preview_limit"`
}

type RetryConfig struct {
	MaxAttempts    int           `json:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`
	Multiplier     float64       `json:"multiplier"`
}

type SkipConfig struct {
	MinTextLength      int  `json:"min_text_length"`
	SkipTargetLanguage bool `json:"skip_target_language"`
	SkipCodeOnly       bool `json:"skip_code_only"`
}

type SystemConfig struct {
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	WatchCron string `json:"watch_cron"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// LoadDotEnv loads variables from the given .env files, or from ./.env when
// none are given. Variables already set in the environment win. A missing
// default file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: llm.Config{
			Provider:        getEnvString("LLM_PROVIDER", llm.ProviderOpenAI),
			APIKey:          getEnvString("LLM_API_KEY", ""),
			APIURL:          getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:           getEnvString("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 4096),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:         getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:         getEnvString("LLM_SITE_URL", ""),
			AppName:         getEnvString("LLM_APP_NAME", ""),
			BreakerFailures: uint32(max(getEnvInt("BREAKER_FAILURES", 5), 0)),
			BreakerCooldown: getEnvDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Translate: TranslateConfig{
			TargetLanguage:            getEnvString("TARGET_LANGUAGE", "ko"),
			SourceLanguage:            getEnvString("SOURCE_LANGUAGE", "en"),
			BatchSize:                 getEnvInt("BATCH_SIZE", 20),
			Concurrency:               getEnvInt("BATCH_CONCURRENCY", 1),
			TranslateCodeComments:     getEnvBool("TRANSLATE_CODE_COMMENTS", false),
			TranslateEmbeddedComments: getEnvBool("TRANSLATE_EMBEDDED_COMMENTS", true),
			Naturalize:                getEnvBool("ENABLE_NATURALIZE", true),
			CodeLanguage:              getEnvString("CODE_LANGUAGE", ""),
			GlossaryFile:              getEnvString("GLOSSARY_FILE", ""),
			MemoryDB:                  getEnvString("MEMORY_DB", ""),
			PreviewLimit:              getEnvInt("PREVIEW_LIMIT", 5),
		},
		Retry: RetryConfig{
			MaxAttempts:    getEnvInt("MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvDuration("RETRY_INITIAL_BACKOFF", time.Second),
			MaxBackoff:     getEnvDuration("RETRY_MAX_BACKOFF", 30*time.Second),
			Multiplier:     getEnvFloat("RETRY_MULTIPLIER", 2),
		},
		Skip: SkipConfig{
			MinTextLength:      getEnvInt("MIN_TEXT_LENGTH", 2),
			SkipTargetLanguage: getEnvBool("SKIP_TARGET_LANGUAGE", false),
			SkipCodeOnly:       getEnvBool("SKIP_CODE_ONLY", false),
		},
		System: SystemConfig{
			LogLevel:  getEnvString("LOG_LEVEL", "info"),
			LogFile:   getEnvString("LOG_FILE", ""),
			WatchCron: getEnvString("WATCH_CRON", "*/10 * * * *"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	log.Debug("Config: provider=%s model=%s target=%s batch=%d concurrency=%d",
		config.LLM.Provider, config.LLM.Model, config.Translate.TargetLanguage,
		config.Translate.BatchSize, config.Translate.Concurrency)

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if err := c.LLM.Validate(); err != nil {
		return errs.Wrap(err, errs.FatalConfiguration, "invalid LLM configuration")
	}
	if _, err := language.Parse(c.Translate.TargetLanguage); err != nil {
		return fmt.Errorf("invalid TARGET_LANGUAGE %q: %w", c.Translate.TargetLanguage, err)
	}
	if c.Translate.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be greater than 0")
	}
	if c.Translate.Concurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be greater than 0")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be greater than 0")
	}
	if _, err := icron.Parse(c.System.WatchCron); err != nil {
		return fmt.Errorf("invalid WATCH_CRON: %w", err)
	}
	return nil
}

// EngineConfig returns the engine configuration derived from c.
func (c *Config) EngineConfig() service.Config {
	return service.Config{
		TargetLanguage:            c.Translate.TargetLanguage,
		BatchSize:                 c.Translate.BatchSize,
		TranslateCodeComments:     c.Translate.TranslateCodeComments,
		TranslateEmbeddedComments: c.Translate.TranslateEmbeddedComments,
		CodeLanguage:              c.Translate.CodeLanguage,
		Naturalize:                c.Translate.Naturalize,
		Retry: service.RetryPolicy{
			MaxAttempts:    c.Retry.MaxAttempts,
			InitialBackoff: c.Retry.InitialBackoff,
			MaxBackoff:     c.Retry.MaxBackoff,
			Multiplier:     c.Retry.Multiplier,
		},
		Concurrency:        c.Translate.Concurrency,
		MinTextLength:      c.Skip.MinTextLength,
		SkipPatterns:       segment.DefaultSkipPatterns,
		SkipTargetLanguage: c.Skip.SkipTargetLanguage,
		SkipCodeOnly:       c.Skip.SkipCodeOnly,
		PreviewLimit:       c.Translate.PreviewLimit,
	}
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1m30s") and plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
