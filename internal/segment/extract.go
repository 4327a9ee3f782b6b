package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/notebook"
)

type SpanKind int

const (
	ProseSpan SpanKind = iota
	CommentSpan
)

func (k SpanKind) String() string {
	if k == ProseSpan {
		return "prose"
	}
	return "comment"
}

// Origin is where a span's text lives in the document. Region is -1 for
// prose spans and for comments of executable fragments. Line, Start and End
// are only set for comment spans.
type Origin struct {
	Fragment int
	Region   int
	Line     int
	Start    int
	End      int
}

func (o Origin) String() string {
	if o.Line < 0 {
		return fmt.Sprintf("cell %d", o.Fragment)
	}
	if o.Region < 0 {
		return fmt.Sprintf("cell %d line %d", o.Fragment, o.Line+1)
	}
	return fmt.Sprintf("cell %d block %d line %d", o.Fragment, o.Region, o.Line+1)
}

type Span struct {
	ID     int
	Kind   SpanKind
	Origin Origin
	Source string

	Translated string
	Done       bool
}

// Text returns the translation when there is one and the source otherwise.
func (s Span) Text() string {
	if s.Done {
		return s.Translated
	}
	return s.Source
}

// FragmentPlan records how one fragment was cut into spans.
type FragmentPlan struct {
	Position int
	Kind     notebook.Kind
	Regions  []EmbeddedRegion
	// Template is the prose text with each region replaced by its placeholder line.
	Template     string
	ProseSpan    int
	CommentSpans []int
}

type Plan struct {
	Fragments []FragmentPlan
	Spans     []Span
	Skipped   int
}

type Options struct {
	TranslateCodeComments     bool
	TranslateEmbeddedComments bool
	// CodeLanguage selects the comment marker for executable fragments.
	CodeLanguage string
	Scanner      CommentScanner
	Rules        SkipRules
}

const placeholderFormat = "<<<CODE_BLOCK_%d>>>"

func Placeholder(region int) string {
	return fmt.Sprintf(placeholderFormat, region)
}

var placeholderRe = regexp.MustCompile(`<<<CODE_BLOCK_\d+>>>`)

// Extract classifies every fragment of doc and cuts out the translatable spans.
// Span ids follow document order, with a fragment's prose span ahead of its
// comment spans.
func Extract(doc *notebook.Document, opts Options) (*Plan, error) {
	if opts.Scanner == nil {
		opts.Scanner = NewLineCommentScanner(nil)
	}

	plan := &Plan{Fragments: make([]FragmentPlan, 0, len(doc.Fragments))}
	for _, frag := range doc.Fragments {
		c, err := Classify(frag)
		if err != nil {
			return nil, err
		}

		fp := FragmentPlan{
			Position:  frag.Position,
			Kind:      c.Kind,
			Regions:   c.Regions,
			ProseSpan: -1,
		}

		if c.Kind == notebook.Executable {
			if opts.TranslateCodeComments && frag.CellType == notebook.CellCode {
				plan.addComments(&fp, frag.Lines, -1, 0, opts.CodeLanguage, opts)
			}
			plan.Fragments = append(plan.Fragments, fp)
			continue
		}

		fp.Template = template(frag.Lines, c.Regions)
		if reason := proseSkipReason(fp.Template, opts.Rules); reason == "" {
			fp.ProseSpan = plan.add(Span{
				Kind:   ProseSpan,
				Origin: Origin{Fragment: frag.Position, Region: -1, Line: -1},
				Source: fp.Template,
			})
		} else {
			plan.Skipped++
		}

		if opts.TranslateEmbeddedComments {
			for _, r := range c.Regions {
				start, end := r.Body()
				plan.addComments(&fp, frag.Lines[start:end], r.Index, start, r.Lang, opts)
			}
		}
		plan.Fragments = append(plan.Fragments, fp)
	}
	return plan, nil
}

func (p *Plan) add(s Span) int {
	s.ID = len(p.Spans)
	p.Spans = append(p.Spans, s)
	return s.ID
}

func (p *Plan) addComments(fp *FragmentPlan, lines []string, region, offset int, lang string, opts Options) {
	for _, c := range opts.Scanner.Scan(lang, lines) {
		text := lines[c.Line][c.Start:c.End]
		if opts.Rules.Reason(text) != "" {
			p.Skipped++
			continue
		}
		id := p.add(Span{
			Kind: CommentSpan,
			Origin: Origin{
				Fragment: fp.Position,
				Region:   region,
				Line:     offset + c.Line,
				Start:    c.Start,
				End:      c.End,
			},
			Source: text,
		})
		fp.CommentSpans = append(fp.CommentSpans, id)
	}
}

func template(lines []string, regions []EmbeddedRegion) string {
	if len(regions) == 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, 0, len(lines))
	next := 0
	for _, r := range regions {
		out = append(out, lines[next:r.StartLine]...)
		out = append(out, Placeholder(r.Index))
		next = r.EndLine + 1
	}
	out = append(out, lines[next:]...)
	return strings.Join(out, "\n")
}

func proseSkipReason(template string, rules SkipRules) string {
	stripped := placeholderRe.ReplaceAllString(template, "")
	if strings.TrimSpace(stripped) == "" {
		return "only code blocks"
	}
	if reason := rules.Reason(stripped); reason != "" {
		return reason
	}
	if rules.CodeOnly && IsOnlyCode(stripped) {
		return "no natural language"
	}
	return ""
}

// Placeholders returns the placeholder tokens the prose of fp must contain.
func (fp FragmentPlan) Placeholders() []string {
	out := make([]string, len(fp.Regions))
	for i, r := range fp.Regions {
		out[i] = Placeholder(r.Index)
	}
	return out
}

// FindPlaceholders returns the placeholder tokens of text in order of appearance.
func FindPlaceholders(text string) []string {
	return placeholderRe.FindAllString(text, -1)
}
