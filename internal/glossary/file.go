package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Filename returns the glossary base name for a language pair, without extension.
// Uses 2-letter language base codes (e.g., "en", "ko").
func Filename(sourceLang, targetLang string) string {
	return "glossary." + normalizeLanguageCode(sourceLang) + "-" + normalizeLanguageCode(targetLang)
}

// FindInAncestors walks up from startDir looking for a glossary file in any
// supported format. Returns the closest path or "".
func FindInAncestors(startDir, sourceLang, targetLang string) string {
	base := Filename(sourceLang, targetLang)
	currentDir := startDir

	for {
		for _, ext := range extensions {
			candidate := filepath.Join(currentDir, base+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a glossary from a JSON or YAML file, chosen by extension.
func Load(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}

	var g Glossary
	if isYAML(path) {
		err = yaml.Unmarshal(data, &g)
	} else {
		err = json.Unmarshal(data, &g)
	}
	if err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}
	if g == nil {
		g = Glossary{}
	}
	return g, nil
}

// Save writes g as indented JSON or YAML, chosen by extension.
func Save(path string, g Glossary) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(g)
	} else {
		data, err = json.MarshalIndent(g, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// normalizeLanguageCode parses a language string and returns its 2-letter base code.
func normalizeLanguageCode(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
