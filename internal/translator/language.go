package translator

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SupportedLanguages are the target language codes offered by the CLI.
var SupportedLanguages = []string{
	"en", "ko", "ja", "zh", "zh-CN", "zh-TW", "fr", "de", "es", "it", "pt", "ru",
	"nl", "sv", "no", "da", "fi", "pl", "cs", "sk", "hu", "ro", "bg", "hr", "sr",
	"sl", "et", "lv", "lt", "el", "tr", "uk", "ar", "he", "fa", "hi", "bn", "te",
	"mr", "ta", "gu", "kn", "ml", "pa", "th", "vi", "id", "ms", "tl", "ur", "sw",
}

// LanguageName returns the English name of a language code, or the code itself
// when it cannot be parsed.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// IsKorean reports whether code names Korean in any region.
func IsKorean(code string) bool {
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "ko"
}
