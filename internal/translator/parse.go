package translator

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

var unwantedPrefixes = []string{
	"Here are the translations:",
	"Here is the translation:",
	"The translations are:",
	"Translation results:",
	"Translated texts:",
	"Translated text:",
	"Translations:",
	"Translation:",
	"번역 결과:",
	"번역:",
	"다음은 번역입니다:",
	"翻译:",
	"翻訳:",
	"Traductions:",
	"Übersetzungen:",
	"Traducciones:",
}

var unwantedSuffixes = []string{
	"End of translations.",
	"Translation complete.",
	"번역 완료.",
	"翻译完成。",
}

// extractJSON removes markdown fences and chatter around the outer JSON value.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

type outputEntry struct {
	ID   *int    `json:"id"`
	Text *string `json:"text"`
}

// parseOutput maps the service reply back to the submitted items. When the
// reply is usable but incomplete it returns the matched entries together with
// an InvalidResponse error.
func parseOutput(raw string, items []Item) (Result, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, errs.New(errs.InvalidResponse, "empty response")
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return nil, errs.Wrap(err, errs.InvalidResponse, "response is not valid json")
	}

	sources := make(map[int]string, len(items))
	for _, it := range items {
		sources[it.ID] = it.Text
	}

	// a bare string array is only trusted when it lines up with the input
	if strs, ok := asStrings(entries); ok {
		if len(strs) != len(items) {
			return Result{}, errs.New(errs.InvalidResponse, "translation count mismatch").
				WithContext("want", len(items)).
				WithContext("got", len(strs))
		}
		result := make(Result, len(items))
		for i, it := range items {
			result[it.ID] = cleanText(it.Text, strs[i])
		}
		return result, nil
	}

	result := make(Result, len(items))
	seen := make(map[int]int, len(entries))
	var unknown []int
	for _, rawEntry := range entries {
		var e outputEntry
		if err := json.Unmarshal(rawEntry, &e); err != nil || e.ID == nil || e.Text == nil {
			continue
		}
		src, ok := sources[*e.ID]
		if !ok {
			unknown = append(unknown, *e.ID)
			continue
		}
		seen[*e.ID]++
		result[*e.ID] = cleanText(src, *e.Text)
	}

	var duplicate []int
	for id, n := range seen {
		if n > 1 {
			duplicate = append(duplicate, id)
			delete(result, id)
		}
	}
	var missing []int
	for _, it := range items {
		if _, ok := seen[it.ID]; !ok {
			missing = append(missing, it.ID)
		}
	}

	if len(missing) == 0 && len(duplicate) == 0 && len(unknown) == 0 {
		return result, nil
	}

	sort.Ints(duplicate)
	e := errs.New(errs.InvalidResponse, "incomplete result set")
	if len(missing) > 0 {
		e.WithContext("missing", missing)
	}
	if len(duplicate) > 0 {
		e.WithContext("duplicate", duplicate)
	}
	if len(unknown) > 0 {
		e.WithContext("unknown", unknown)
	}
	return result, e
}

func decodeEntries(body string) ([]json.RawMessage, error) {
	if strings.HasPrefix(body, "{") {
		var wrapped struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Items, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func asStrings(entries []json.RawMessage) ([]string, bool) {
	if len(entries) == 0 {
		return nil, false
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		if err := json.Unmarshal(e, &out[i]); err != nil {
			return nil, false
		}
	}
	return out, true
}

// cleanText strips the chatter and wrapping quotes a model sometimes adds
// around a single translation. Nothing is stripped that the source had too.
func cleanText(source, text string) string {
	out := strings.TrimSpace(text)
	src := strings.TrimSpace(source)

	for _, p := range unwantedPrefixes {
		if strings.HasPrefix(out, p) && !strings.HasPrefix(src, p) {
			out = strings.TrimSpace(strings.TrimPrefix(out, p))
			break
		}
	}
	for _, s := range unwantedSuffixes {
		if strings.HasSuffix(out, s) && !strings.HasSuffix(src, s) {
			out = strings.TrimSpace(strings.TrimSuffix(out, s))
			break
		}
	}

	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		open, closer := q[0], q[1]
		if len(out) >= len(open)+len(closer) && strings.HasPrefix(out, open) && strings.HasSuffix(out, closer) &&
			!(strings.HasPrefix(src, open) && strings.HasSuffix(src, closer)) {
			out = strings.TrimSpace(out[len(open) : len(out)-len(closer)])
			break
		}
	}

	return restoreEdges(source, out)
}

// restoreEdges copies the leading and trailing whitespace of source onto text.
func restoreEdges(source, text string) string {
	if strings.TrimSpace(source) == "" {
		return text
	}
	lead := source[:len(source)-len(strings.TrimLeft(source, " \t\n"))]
	trail := source[len(strings.TrimRight(source, " \t\n")):]
	return lead + text + trail
}
