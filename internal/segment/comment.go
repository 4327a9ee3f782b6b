package segment

import (
	"strings"
)

// Comment locates the text of a single-line comment. Start and End are byte
// columns of the comment text, excluding the marker and surrounding blanks.
type Comment struct {
	Line  int
	Start int
	End   int
}

// CommentScanner finds translatable single-line comments in code lines.
// Ambiguous lines must be reported as having no comment.
type CommentScanner interface {
	Scan(lang string, lines []string) []Comment
}

var DefaultMarkers = map[string]string{
	"":           "#",
	"python":     "#",
	"py":         "#",
	"python3":    "#",
	"ipython":    "#",
	"ipython3":   "#",
	"bash":       "#",
	"sh":         "#",
	"shell":      "#",
	"zsh":        "#",
	"r":          "#",
	"ruby":       "#",
	"rb":         "#",
	"perl":       "#",
	"yaml":       "#",
	"yml":        "#",
	"toml":       "#",
	"julia":      "#",
	"javascript": "//",
	"js":         "//",
	"typescript": "//",
	"ts":         "//",
	"go":         "//",
	"java":       "//",
	"scala":      "//",
	"kotlin":     "//",
	"c":          "//",
	"cpp":        "//",
	"c++":        "//",
	"csharp":     "//",
	"rust":       "//",
	"swift":      "//",
	"sql":        "--",
	"lua":        "--",
	"haskell":    "--",
}

// LineCommentScanner recognises a per-language marker outside string literals.
// Languages without a marker are not scanned.
type LineCommentScanner struct {
	Markers map[string]string
}

func NewLineCommentScanner(markers map[string]string) *LineCommentScanner {
	if markers == nil {
		markers = DefaultMarkers
	}
	return &LineCommentScanner{Markers: markers}
}

var directivePrefixes = []string{"%", "!", "noqa", "type:", "pragma", "pylint:", "fmt:", "-*-", "eslint", "nolint", "go:", "+build"}

func (s *LineCommentScanner) Scan(lang string, lines []string) []Comment {
	marker, ok := s.Markers[strings.ToLower(lang)]
	if !ok || marker == "" {
		return nil
	}

	var out []Comment
	var open string
	for i, line := range lines {
		var col int
		col, open = findMarker(line, marker, open)
		if col < 0 {
			continue
		}
		if c, ok := commentAt(line, col, marker, i); ok {
			out = append(out, c)
		}
	}
	return out
}

// findMarker returns the byte column of marker outside quotes, or -1. open is
// the delimiter of a string still open from a previous line: a triple quote,
// or a backtick in languages with "//" comments, where backticks quote
// template literals and raw strings.
func findMarker(line, marker, open string) (int, string) {
	backticks := marker == "//"
	i := 0
	for i < len(line) {
		switch open {
		case "":
		case "`":
			end := closingQuote(line, i, '`')
			if end < 0 {
				return -1, open
			}
			i = end + 1
			open = ""
			continue
		default:
			end := strings.Index(line[i:], open)
			if end < 0 {
				return -1, open
			}
			i += end + len(open)
			open = ""
			continue
		}

		ch := line[i]
		if ch == '`' && backticks {
			open = "`"
			i++
			continue
		}
		if ch == '"' || ch == '\'' {
			q := string([]byte{ch, ch, ch})
			if strings.HasPrefix(line[i:], q) {
				open = q
				i += 3
				continue
			}
			end := closingQuote(line, i+1, ch)
			if end < 0 {
				// unbalanced quote: nothing after it can be trusted
				return -1, ""
			}
			i = end + 1
			continue
		}

		if strings.HasPrefix(line[i:], marker) {
			if i > 0 && line[i-1] != ' ' && line[i-1] != '\t' {
				return -1, ""
			}
			return i, ""
		}
		i++
	}
	return -1, open
}

func closingQuote(line string, from int, q byte) int {
	for j := from; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

func commentAt(line string, col int, marker string, lineIdx int) (Comment, bool) {
	rest := line[col+len(marker):]
	// banners such as "## Section" or "#!/bin/sh" are not prose
	if strings.HasPrefix(rest, marker[:1]) || strings.HasPrefix(rest, "!") {
		return Comment{}, false
	}

	trimmedLeft := strings.TrimLeft(rest, " \t")
	text := strings.TrimRight(trimmedLeft, " \t\r")
	if text == "" {
		return Comment{}, false
	}
	for _, p := range directivePrefixes {
		if strings.HasPrefix(text, p) {
			return Comment{}, false
		}
	}

	start := col + len(marker) + (len(rest) - len(trimmedLeft))
	return Comment{
		Line:  lineIdx,
		Start: start,
		End:   start + len(text),
	}, true
}
