package glossary

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match filters g to the terms that appear as whole words in any of texts.
// Matching is case-sensitive.
func Match(g Glossary, texts []string) Glossary {
	matched := make(Glossary)

	for source, target := range g {
		for _, text := range texts {
			if ContainsWord(text, source) {
				matched[source] = target
				break
			}
		}
	}

	return matched
}

// Terms returns the source terms of g in sorted order.
func (g Glossary) Terms() []string {
	terms := make([]string, 0, len(g))
	for k := range g {
		terms = append(terms, k)
	}
	sort.Strings(terms)
	return terms
}

// Violations lists the terms of g found in source whose mapped target is
// missing from translated.
func Violations(g Glossary, source, translated string) []string {
	var missing []string
	for _, term := range g.Terms() {
		if ContainsWord(source, term) && !strings.Contains(translated, g[term]) {
			missing = append(missing, term)
		}
	}
	return missing
}

// ContainsWord reports whether word occurs in text delimited by non-word runes.
func ContainsWord(text, word string) bool {
	return containsWord(text, word)
}

// ContainsWordFold is the case-insensitive variant of ContainsWord.
func ContainsWordFold(text, word string) bool {
	return containsWord(strings.ToLower(text), strings.ToLower(word))
}

func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}
