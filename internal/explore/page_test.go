package explore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}

	p := Paginate(items, 1, 6)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, p.Items)
	require.Equal(t, 3, p.TotalPages)
	require.False(t, p.HasPrev)
	require.True(t, p.HasNext)

	p = Paginate(items, 3, 6)
	require.Equal(t, []int{13, 14}, p.Items)
	require.True(t, p.HasPrev)
	require.False(t, p.HasNext)

	p = Paginate(items, 9, 6)
	require.Empty(t, p.Items)
	require.NotNil(t, p.Items)
	require.Equal(t, 14, p.Total)

	p = Paginate(items, 0, 0)
	require.Equal(t, 1, p.Number)
	require.Equal(t, 6, p.Size)

	p = Paginate([]int(nil), 1, 6)
	require.Empty(t, p.Items)
	require.Equal(t, 0, p.TotalPages)
	require.False(t, p.HasNext)
}

func TestPaginate_HugeArguments(t *testing.T) {
	items := []int{1, 2, 3}

	p := Paginate(items, math.MaxInt/6+2, 6)
	require.Empty(t, p.Items)
	require.True(t, p.HasPrev)
	require.False(t, p.HasNext)

	p = Paginate(items, math.MaxInt, math.MaxInt)
	require.Empty(t, p.Items)

	p = Paginate(items, 1, math.MaxInt)
	require.Equal(t, []int{1, 2, 3}, p.Items)
	require.Equal(t, 1, p.TotalPages)
	require.False(t, p.HasNext)
}

func TestPaginate_PagesPartitionItems(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.Int()).Draw(t, "items")
		size := rapid.IntRange(1, 10).Draw(t, "size")

		first := Paginate(items, 1, size)
		var joined []int
		for n := 1; n <= first.TotalPages; n++ {
			p := Paginate(items, n, size)
			if len(p.Items) == 0 || len(p.Items) > size {
				t.Fatalf("page %d has %d items", n, len(p.Items))
			}
			joined = append(joined, p.Items...)
		}
		if len(joined) != len(items) {
			t.Fatalf("pages cover %d of %d items", len(joined), len(items))
		}
		for i := range items {
			if joined[i] != items[i] {
				t.Fatalf("item %d differs", i)
			}
		}
	})
}
