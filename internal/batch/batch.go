package batch

import (
	"errors"

	"github.com/MimeLyc/notebook-translator/internal/segment"
)

// Batch is the unit of one remote call. SpanIDs keep document order.
type Batch struct {
	Index   int
	SpanIDs []int
}

func (b Batch) Len() int { return len(b.SpanIDs) }

// Make groups spans in document order, starting a new batch whenever the
// current one holds max spans.
func Make(spans []segment.Span, max int) ([]Batch, error) {
	if max <= 0 {
		return nil, errors.New("batch: max size must be > 0")
	}
	if len(spans) == 0 {
		return nil, nil
	}

	batches := make([]Batch, 0, (len(spans)+max-1)/max)
	for start := 0; start < len(spans); start += max {
		end := min(start+max, len(spans))
		ids := make([]int, 0, end-start)
		for _, s := range spans[start:end] {
			ids = append(ids, s.ID)
		}
		batches = append(batches, Batch{Index: len(batches), SpanIDs: ids})
	}
	return batches, nil
}

// Singles splits ids into batches of one, numbered from first.
func Singles(ids []int, first int) []Batch {
	out := make([]Batch, len(ids))
	for i, id := range ids {
		out[i] = Batch{Index: first + i, SpanIDs: []int{id}}
	}
	return out
}
