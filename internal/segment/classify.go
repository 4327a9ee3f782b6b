package segment

import (
	"regexp"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
)

// EmbeddedRegion is a fenced code excerpt inside a prose fragment.
// StartLine and EndLine are the line indexes of the opening and closing fence.
// Indent is the whitespace before the opening fence, as in a list item.
type EmbeddedRegion struct {
	Index     int
	StartLine int
	EndLine   int
	Lang      string
	Fence     string
	Indent    string
}

// Body returns the half-open line range between the fences.
func (r EmbeddedRegion) Body() (int, int) {
	return r.StartLine + 1, r.EndLine
}

type Classification struct {
	Kind    notebook.Kind
	Regions []EmbeddedRegion
}

var fenceRe = regexp.MustCompile("^([ \t]*)(`{3,}|~{3,})(.*)$")

// maxCloseShift is how much deeper than its opening fence a closing fence may be indented.
const maxCloseShift = 3

// Classify determines the kind of f and, for prose, the fenced regions inside it.
func Classify(f notebook.Fragment) (Classification, error) {
	if f.Kind == notebook.Executable {
		return Classification{Kind: notebook.Executable}, nil
	}

	c := Classification{Kind: notebook.Prose}
	open := -1
	var fence, lang, indent string

	for i, line := range f.Lines {
		m := fenceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lead, marker, info := m[1], m[2], strings.TrimSpace(m[3])

		if open < 0 {
			// backtick fences may not carry backticks in their info string
			if marker[0] == '`' && strings.Contains(info, "`") {
				continue
			}
			open, fence, lang, indent = i, marker, infoLang(info), lead
			continue
		}

		if marker[0] == fence[0] && len(marker) >= len(fence) && info == "" &&
			indentWidth(lead) <= indentWidth(indent)+maxCloseShift {
			c.Regions = append(c.Regions, EmbeddedRegion{
				Index:     len(c.Regions),
				StartLine: open,
				EndLine:   i,
				Lang:      lang,
				Fence:     fence,
				Indent:    indent,
			})
			open = -1
		}
	}

	if open >= 0 {
		return Classification{}, errs.New(errs.MalformedDocument, "code fence is never closed").
			WithContext("fragment", f.Position).
			WithContext("line", open)
	}
	return c, nil
}

func infoLang(info string) string {
	if info == "" {
		return ""
	}
	word := strings.Fields(info)[0]
	word = strings.Trim(word, "{}.")
	return strings.ToLower(word)
}

// indentWidth counts columns of leading whitespace, with tabs stopping every four.
func indentWidth(lead string) int {
	w := 0
	for _, r := range lead {
		if r == '\t' {
			w += 4 - w%4
			continue
		}
		w++
	}
	return w
}
