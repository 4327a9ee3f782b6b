package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/glossary"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

type promptItem struct {
	ID   int    `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type promptPayload struct {
	Items []promptItem `json:"items"`
}

func buildUserMessage(items []Item) (string, error) {
	payload := promptPayload{Items: make([]promptItem, len(items))}
	for i, it := range items {
		payload.Items[i] = promptItem{ID: it.ID, Kind: it.Kind.String(), Text: it.Text}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal prompt items: %w", err)
	}
	return string(data), nil
}

func buildSystemPrompt(req Request, terms glossary.Glossary) string {
	var prompt strings.Builder
	lang := LanguageName(req.TargetLanguage)

	if req.Mode == ModeNaturalize {
		prompt.WriteString("You are a native " + lang + " editor of technical documentation and Jupyter notebooks. " +
			"Each item is an existing " + lang + " translation. Rewrite it so it reads like text originally written in " + lang + ", without changing its meaning.\n\n")
	} else {
		prompt.WriteString("You are a professional translator specializing in technical documentation and Jupyter notebooks. " +
			"Translate each item to " + lang + ".\n\n")
	}

	prompt.WriteString("=== CRITICAL RULES ===\n")
	prompt.WriteString("- Keep brand names, company names, person names and product names untranslated\n")
	prompt.WriteString("- Keep technical terms commonly used in English (API, SDK, CLI) untranslated\n")
	prompt.WriteString("- Keep programming keywords, function names, variable names and library names untranslated\n")
	prompt.WriteString("- Keep file paths, URLs, e-mail addresses, numbers and inline `code` untranslated\n")
	prompt.WriteString("- Preserve all markdown formatting: headers, lists, links, emphasis and tables\n")
	prompt.WriteString("- Tokens like " + segment.Placeholder(0) + " stand for code blocks: copy each one exactly once, unchanged, on its own line\n")
	prompt.WriteString("- Items of kind \"comment\" are single-line code comments: answer with exactly one line and no comment marker\n")
	prompt.WriteString("- Translate every item, even very short ones\n")

	if len(terms) > 0 {
		prompt.WriteString("\n=== TERMINOLOGY ===\n")
		for _, term := range terms.Terms() {
			prompt.WriteString(fmt.Sprintf("- %q → %q (MUST use the mapped target term exactly)\n", term, terms[term]))
		}
		prompt.WriteString("- Use the SAME translation for the SAME term throughout the notebook\n")
	}

	if IsKorean(req.TargetLanguage) {
		prompt.WriteString(koreanRules)
	}

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("The input is a JSON object {\"items\":[{\"id\":...,\"kind\":...,\"text\":...}]}.\n")
	prompt.WriteString("Return ONLY a JSON array [{\"id\":<id>,\"text\":\"<result>\"}] with exactly one entry per input id.\n")
	prompt.WriteString("Do NOT merge, split, reorder, or drop items. Do not include explanations.\n")

	return prompt.String()
}

const koreanRules = `
=== KOREAN STYLE ===
- Use "~하겠습니다" instead of "~할 것입니다" for future intentions
- Use "~해보겠습니다" instead of "~해볼 것입니다" for trying actions
- Examples: "Let's create" → "만들어보겠습니다", "We'll generate" → "생성하겠습니다"
- EVERY Korean sentence MUST end with proper punctuation (., ?, !)
- Avoid overusing "우리는"; use natural Korean sentence structures instead
- "We have learned:" → "다음을 학습했습니다:" (NOT "우리는 학습했습니다:")
- Keep person names in their original spelling
`
