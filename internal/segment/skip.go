package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DefaultSkipPatterns match numbers, URLs, e-mail addresses, shell variables
// and UPPER_CASE constants.
var DefaultSkipPatterns = []string{
	`^\d+$`,
	`^https?://\S+$`,
	`^\S+@\S+\.\S+$`,
	`^\$[A-Za-z_][A-Za-z0-9_]*$`,
	`^[A-Z_][A-Z0-9_]*$`,
}

// SkipRules decides which extracted texts are not worth sending for translation.
type SkipRules struct {
	// MinLength is the minimum number of runes of the trimmed text.
	MinLength int
	Patterns  []*regexp.Regexp
	// TargetLanguage, when set, skips texts reliably detected as already in it.
	TargetLanguage string
	// CodeOnly skips prose with fewer than two natural-language words once
	// inline code, punctuation, numbers and operators are removed.
	CodeOnly bool
}

func NewSkipRules(minLength int, patterns []string, skipTarget string) (SkipRules, error) {
	rules := SkipRules{MinLength: minLength}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return SkipRules{}, err
		}
		rules.Patterns = append(rules.Patterns, re)
	}
	if skipTarget != "" {
		tag, err := language.Parse(skipTarget)
		if err != nil {
			return SkipRules{}, err
		}
		base, _ := tag.Base()
		rules.TargetLanguage = base.String()
	}
	return rules, nil
}

// Reason returns why text should be skipped, or "" when it should be translated.
func (r SkipRules) Reason(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "empty"
	}
	if utf8.RuneCountInString(trimmed) < r.MinLength {
		return "too short"
	}
	for _, re := range r.Patterns {
		if re.MatchString(trimmed) {
			return "matches " + re.String()
		}
	}
	if r.TargetLanguage != "" {
		info := whatlanggo.Detect(trimmed)
		if info.IsReliable() && info.Lang.Iso6391() == r.TargetLanguage {
			return "already in target language"
		}
	}
	return ""
}

var (
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	codeNoiseRe  = regexp.MustCompile(`[{}()\[\];,.=+\-*/<>!&|]|\b\d+\b`)
)

// IsOnlyCode reports whether text holds fewer than two words that look like
// natural language: longer than two characters and not all upper case.
func IsOnlyCode(text string) bool {
	text = placeholderRe.ReplaceAllString(text, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	text = codeNoiseRe.ReplaceAllString(text, " ")

	words := 0
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 2 && !isUpperWord(w) {
			words++
			if words == 2 {
				return false
			}
		}
	}
	return true
}

func isUpperWord(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when detection is unreliable.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
