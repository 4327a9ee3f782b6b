package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	valid := Settings{Provider: "gemini", TargetLanguage: "ja", BatchSize: 10, InitialBackoff: "2s"}
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.Provider = "other"
	require.Error(t, invalid.Validate())

	invalidLang := valid
	invalidLang.TargetLanguage = "!!"
	require.Error(t, invalidLang.Validate())

	invalidBackoff := valid
	invalidBackoff.InitialBackoff = "soon"
	require.Error(t, invalidBackoff.Validate())
}

func TestSettingsFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", DefaultSettingsFile)
	off := false
	minLen := 4
	input := Settings{
		Model:          "gpt-4o",
		TargetLanguage: "fr",
		BatchSize:      8,
		Naturalize:     &off,
		MinTextLength:  &minLen,
	}

	require.NoError(t, WriteSettingsFile(path, input))

	got, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadSettingsFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSettingsFile)
	content := "target_language: de\nbatch_size: 12\ncode_comments: true\ninitial_backoff: 500ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadSettingsFile(path)
	require.NoError(t, err)

	t.Setenv("LLM_API_KEY", "test-key")
	cfg, err := NewFromEnv(WithSettings(s))
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Translate.TargetLanguage)
	assert.Equal(t, 12, cfg.Translate.BatchSize)
	assert.True(t, cfg.Translate.TranslateCodeComments)
	assert.True(t, cfg.Translate.Naturalize)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff)
}

func TestLoadSettingsFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("batch_size: [1, 2]\n"), 0o600))
	_, err := LoadSettingsFile(path)
	assert.Error(t, err)
}
