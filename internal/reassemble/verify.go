package reassemble

import (
	"bytes"
	"strings"

	"github.com/MimeLyc/notebook-translator/internal/errs"
	"github.com/MimeLyc/notebook-translator/internal/notebook"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

type column struct{ start, end int }

// Verify checks that out differs from orig only inside span origins: fragment
// count, order, cell types and metadata are unchanged, executable fragments
// are identical apart from comment text, and every code block of a prose
// fragment keeps all of its non-comment bytes.
func Verify(orig, out *notebook.Document, plan *segment.Plan) error {
	if len(orig.Fragments) != len(out.Fragments) {
		return errs.New(errs.Invariant, "fragment count changed").
			WithContext("before", len(orig.Fragments)).
			WithContext("after", len(out.Fragments))
	}

	for i := range orig.Fragments {
		a, b := orig.Fragments[i], out.Fragments[i]
		if a.Position != b.Position || a.CellType != b.CellType || !sameMeta(a, b) {
			return errs.New(errs.Invariant, "fragment identity or metadata changed").WithContext("fragment", i)
		}

		fp := plan.Fragments[i]
		cols := commentColumns(fp, plan.Spans)
		if fp.Kind == notebook.Executable {
			if len(a.Lines) != len(b.Lines) || !maskedEqual(a.Lines, b.Lines, cols, 0, 0, len(a.Lines)) {
				return errs.New(errs.Invariant, "executable fragment changed outside comments").WithContext("fragment", i)
			}
			continue
		}
		if err := verifyRegions(a, b, fp, cols); err != nil {
			return err
		}
	}
	return nil
}

// verifyRegions re-reads the code blocks of out and compares them with those of orig.
func verifyRegions(orig, out notebook.Fragment, fp segment.FragmentPlan, cols map[int][]column) error {
	c, err := segment.Classify(out)
	if err != nil || len(c.Regions) != len(fp.Regions) {
		return errs.New(errs.Invariant, "code blocks changed").WithContext("fragment", orig.Position)
	}
	for k, r := range fp.Regions {
		nr := c.Regions[k]
		n := r.EndLine - r.StartLine + 1
		if nr.EndLine-nr.StartLine+1 != n || !maskedEqual(orig.Lines, out.Lines, cols, r.StartLine, nr.StartLine, n) {
			return errs.New(errs.Invariant, "code block changed outside comments").
				WithContext("fragment", orig.Position).
				WithContext("block", k)
		}
	}
	return nil
}

// commentColumns indexes the comment span origins of fp by line.
func commentColumns(fp segment.FragmentPlan, spans []segment.Span) map[int][]column {
	cols := make(map[int][]column)
	for _, id := range fp.CommentSpans {
		o := spans[id].Origin
		cols[o.Line] = append(cols[o.Line], column{o.Start, o.End})
	}
	return cols
}

// maskedEqual compares n lines of a starting at from with n lines of b
// starting at to. Lines listed in cols may differ inside their comment columns.
func maskedEqual(a, b []string, cols map[int][]column, from, to, n int) bool {
	if from+n > len(a) || to+n > len(b) {
		return false
	}
	for k := 0; k < n; k++ {
		la, lb := a[from+k], b[to+k]
		cs := cols[from+k]
		if len(cs) == 0 {
			if la != lb {
				return false
			}
			continue
		}
		if !sameOutside(la, lb, cs) {
			return false
		}
	}
	return true
}

// sameOutside reports whether b equals a apart from the text between the
// first column's start and the last column's end.
func sameOutside(a, b string, cs []column) bool {
	start, end := cs[0].start, cs[0].end
	for _, c := range cs[1:] {
		start = min(start, c.start)
		end = max(end, c.end)
	}
	prefix, suffix := a[:start], a[end:]
	return len(b) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(b, prefix) &&
		strings.HasSuffix(b, suffix) &&
		!strings.ContainsAny(b[len(prefix):len(b)-len(suffix)], "\r\n")
}

func sameMeta(a, b notebook.Fragment) bool {
	if len(a.Meta) != len(b.Meta) {
		return false
	}
	for k, v := range a.Meta {
		w, ok := b.Meta[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}
