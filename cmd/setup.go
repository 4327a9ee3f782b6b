package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MimeLyc/notebook-translator/internal/config"
	"github.com/MimeLyc/notebook-translator/internal/glossary"
	"github.com/MimeLyc/notebook-translator/internal/llm"
	"github.com/MimeLyc/notebook-translator/internal/memory"
	"github.com/MimeLyc/notebook-translator/internal/service"
	"github.com/MimeLyc/notebook-translator/internal/translator"
	"github.com/MimeLyc/notebook-translator/pkg/log"
)

const defaultSettingsFile = config.DefaultSettingsFile

var globals struct {
	envFile    string
	configFile string
	logLevel   string
	logFile    string
}

// loadConfig reads .env, the settings file and the environment, then applies opts.
func loadConfig(opts ...config.Option) (*config.Config, error) {
	var envFiles []string
	if globals.envFile != "" {
		envFiles = append(envFiles, globals.envFile)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	settingsFile := globals.configFile
	if settingsFile == "" {
		if _, err := os.Stat(defaultSettingsFile); err == nil {
			settingsFile = defaultSettingsFile
		}
	}
	var all []config.Option
	if settingsFile != "" {
		settings, err := config.LoadSettingsFile(settingsFile)
		if err != nil {
			return nil, err
		}
		all = append(all, config.WithSettings(settings))
	}
	if globals.logLevel != "" {
		all = append(all, func(c *config.Config) { c.System.LogLevel = globals.logLevel })
	}
	if globals.logFile != "" {
		all = append(all, func(c *config.Config) { c.System.LogFile = globals.logFile })
	}
	all = append(all, opts...)

	cfg, err := config.NewFromEnv(all...)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the global logger. The returned func closes the log file.
func setupLogging(cfg config.SystemConfig) (func(), error) {
	level := log.ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		log.InitLogger(level)
		return func() {}, nil
	}
	fl, err := log.NewFileLogger(cfg.LogFile, level)
	if err != nil {
		return nil, err
	}
	log.SetLogger(fl.Logger)
	return func() { _ = fl.Close() }, nil
}

// loadGlossary merges the built-in terms with GLOSSARY_FILE, or with the
// closest glossary file above the first notebook.
func loadGlossary(cfg *config.Config, inputs []string) (glossary.Glossary, error) {
	terms := glossary.Defaults(cfg.Translate.TargetLanguage)

	path := cfg.Translate.GlossaryFile
	if path == "" && len(inputs) > 0 {
		dir, err := filepath.Abs(filepath.Dir(inputs[0]))
		if err == nil {
			path = glossary.FindInAncestors(dir, cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
		}
	}
	if path == "" {
		return terms, nil
	}

	loaded, err := glossary.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load glossary %s: %w", path, err)
	}
	log.Info("Loaded %d glossary terms from %s", len(loaded), path)
	return terms.Merge(loaded), nil
}

// buildEngine wires the completion transport, glossary and translation memory
// into an engine. The returned func releases the memory store.
func buildEngine(ctx context.Context, cfg *config.Config, inputs []string) (*service.Engine, func(), error) {
	completer, err := llm.New(ctx, &cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	terms, err := loadGlossary(cfg, inputs)
	if err != nil {
		return nil, nil, err
	}
	client := translator.NewLLMClient(completer, terms)

	closer := func() {}
	var opts []service.Option
	if cfg.Translate.MemoryDB != "" {
		store, err := memory.NewSQLiteStore(cfg.Translate.MemoryDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open translation memory: %w", err)
		}
		opts = append(opts, service.WithMemory(store))
		closer = func() { _ = store.Close() }
	}

	engine, err := service.NewEngine(cfg.EngineConfig(), client, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return engine, closer, nil
}
