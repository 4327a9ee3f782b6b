package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/notebook-translator/internal/segment"
)

func spans(n int) []segment.Span {
	out := make([]segment.Span, n)
	for i := range out {
		out[i] = segment.Span{ID: i}
	}
	return out
}

func sizes(batches []Batch) []int {
	var out []int
	for _, b := range batches {
		out = append(out, b.Len())
	}
	return out
}

func TestMakeTwelveByFive(t *testing.T) {
	t.Parallel()

	batches, err := Make(spans(12), 5)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 2}, sizes(batches))
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
	}
}

func TestMakePreservesOrderAndPartitions(t *testing.T) {
	t.Parallel()

	for _, max := range []int{1, 2, 3, 7, 20, 100} {
		batches, err := Make(spans(23), max)
		require.NoError(t, err)

		var ids []int
		for i, b := range batches {
			assert.LessOrEqual(t, b.Len(), max)
			if i < len(batches)-1 {
				assert.Equal(t, max, b.Len())
			}
			ids = append(ids, b.SpanIDs...)
		}
		want := make([]int, 23)
		for i := range want {
			want[i] = i
		}
		assert.Equal(t, want, ids, "max=%d", max)
	}
}

func TestMakeEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	batches, err := Make(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, batches)

	_, err = Make(spans(3), 0)
	assert.Error(t, err)
}

func TestSingles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Batch{
		{Index: 4, SpanIDs: []int{7}},
		{Index: 5, SpanIDs: []int{9}},
	}, Singles([]int{7, 9}, 4))
}
