package reassemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

// Rejection is a translation that came back but could not be used. The span
// keeps its source text.
type Rejection struct {
	SpanID int
	Reason string
}

// Assemble returns a copy of doc with every completed span of plan substituted
// at its origin. Spans that are not Done, or whose translation would break the
// fragment, keep their source text. An error is only returned when the
// resulting document would differ from doc outside of span origins.
func Assemble(doc *notebook.Document, plan *segment.Plan) (*notebook.Document, []Rejection, error) {
	if len(plan.Fragments) != len(doc.Fragments) {
		return nil, nil, errs.New(errs.Invariant, "plan does not match document").
			WithContext("fragments", len(doc.Fragments)).
			WithContext("planned", len(plan.Fragments))
	}

	out := doc.Clone()
	var rejected []Rejection
	for i, fp := range plan.Fragments {
		frag, rej, err := assembleFragment(doc.Fragments[i], fp, plan.Spans)
		if err != nil {
			return nil, nil, err
		}
		rejected = append(rejected, rej...)
		out.Fragments[i] = frag
	}

	if err := Verify(doc, out, plan); err != nil {
		return nil, nil, err
	}
	sort.Slice(rejected, func(a, b int) bool { return rejected[a].SpanID < rejected[b].SpanID })
	return out, rejected, nil
}

func assembleFragment(orig notebook.Fragment, fp segment.FragmentPlan, spans []segment.Span) (notebook.Fragment, []Rejection, error) {
	frag := orig.Clone()
	accepted, rejected := acceptedComments(fp, spans)
	frag.Lines = applyComments(orig.Lines, accepted, spans)

	if fp.Kind == notebook.Executable {
		return frag, rejected, nil
	}

	prose := fp.Template
	usedTranslation := false
	if fp.ProseSpan >= 0 && spans[fp.ProseSpan].Done {
		tr := spans[fp.ProseSpan].Translated
		if reason := checkPlaceholders(tr, fp); reason != "" {
			rejected = append(rejected, Rejection{SpanID: fp.ProseSpan, Reason: reason})
		} else {
			prose = tr
			usedTranslation = true
		}
	}

	frag.SetText(insertRegions(prose, fp.Regions, frag.Lines))
	if !usedTranslation {
		return frag, rejected, nil
	}

	// the translated prose may itself open or close a fence
	if err := verifyRegions(orig, frag, fp, commentColumns(fp, spans)); err != nil {
		rejected = append(rejected, Rejection{SpanID: fp.ProseSpan, Reason: "translation changes code block structure"})
		frag.SetText(insertRegions(fp.Template, fp.Regions, applyComments(orig.Lines, accepted, spans)))
	}
	return frag, rejected, nil
}

// acceptedComments returns the done comment spans of fp whose translation fits on one line.
func acceptedComments(fp segment.FragmentPlan, spans []segment.Span) ([]int, []Rejection) {
	var ok []int
	var rejected []Rejection
	for _, id := range fp.CommentSpans {
		s := spans[id]
		if !s.Done {
			continue
		}
		if strings.ContainsAny(s.Translated, "\r\n") {
			rejected = append(rejected, Rejection{SpanID: id, Reason: "comment translation spans several lines"})
			continue
		}
		if strings.TrimSpace(s.Translated) == "" {
			rejected = append(rejected, Rejection{SpanID: id, Reason: "comment translation is empty"})
			continue
		}
		ok = append(ok, id)
	}
	return ok, rejected
}

// applyComments substitutes the given comment spans into a copy of lines.
// Spans on the same line are applied right to left so earlier columns stay valid.
func applyComments(lines []string, ids []int, spans []segment.Span) []string {
	out := append([]string(nil), lines...)
	ordered := append([]int(nil), ids...)
	sort.Slice(ordered, func(a, b int) bool {
		oa, ob := spans[ordered[a]].Origin, spans[ordered[b]].Origin
		if oa.Line != ob.Line {
			return oa.Line < ob.Line
		}
		return oa.Start > ob.Start
	})
	for _, id := range ordered {
		o := spans[id].Origin
		line := out[o.Line]
		out[o.Line] = line[:o.Start] + spans[id].Translated + line[o.End:]
	}
	return out
}

func checkPlaceholders(text string, fp segment.FragmentPlan) string {
	want := fp.Placeholders()
	for _, p := range want {
		if n := strings.Count(text, p); n != 1 {
			return fmt.Sprintf("placeholder %s appears %d times", p, n)
		}
	}
	if n := placeholderCount(text); n != len(want) {
		return fmt.Sprintf("translation holds %d placeholders, want %d", n, len(want))
	}
	return ""
}

func placeholderCount(text string) int {
	return strings.Count(text, "<<<CODE_BLOCK_")
}

// insertRegions replaces each placeholder with the region's lines taken from
// lines, keeping the region on lines of its own.
func insertRegions(prose string, regions []segment.EmbeddedRegion, lines []string) string {
	out := prose
	for _, r := range regions {
		token := segment.Placeholder(r.Index)
		idx := strings.Index(out, token)
		if idx < 0 {
			continue
		}
		before, after := out[:idx], out[idx+len(token):]
		if before != "" && !strings.HasSuffix(before, "\n") {
			before += "\n"
		}
		if after != "" && !strings.HasPrefix(after, "\n") {
			after = "\n" + after
		}
		block := strings.Join(lines[r.StartLine:r.EndLine+1], "\n")
		out = before + block + after
	}
	return out
}
