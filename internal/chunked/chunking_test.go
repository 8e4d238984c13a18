package chunked

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChunking(t *testing.T) {
	ch, err := NewChunking([]int64{5, 0, 3})
	require.NoError(t, err)
	require.Equal(t, 3, ch.NumChunks())
	require.Equal(t, int64(8), ch.Len())
	require.Equal(t, []int64{5, 0, 3}, ch.Lengths())

	lo, hi := ch.Bounds(0)
	require.Equal(t, int64(0), lo)
	require.Equal(t, int64(5), hi)
	lo, hi = ch.Bounds(1)
	require.Equal(t, int64(5), lo)
	require.Equal(t, int64(5), hi)
	lo, hi = ch.Bounds(2)
	require.Equal(t, int64(5), lo)
	require.Equal(t, int64(8), hi)
}

func TestNewChunkingNegative(t *testing.T) {
	_, err := NewChunking([]int64{2, -1})
	require.Error(t, err)
}

func TestFindChunk(t *testing.T) {
	ch, err := NewChunking([]int64{3, 0, 4, 1})
	require.NoError(t, err)

	// Position 3 falls in chunk 2: chunk 1 is empty and holds nothing.
	cases := map[int64]int{0: 0, 2: 0, 3: 2, 6: 2, 7: 3}
	for pos, want := range cases {
		require.Equal(t, want, ch.FindChunk(pos), "pos %d", pos)
	}
}

func TestChunkingEqual(t *testing.T) {
	a, err := NewChunking([]int64{2, 3})
	require.NoError(t, err)
	b, err := NewChunking([]int64{2, 3})
	require.NoError(t, err)
	c, err := NewChunking([]int64{3, 2})
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(SingleChunk(5)))
}

func TestChunkingSection(t *testing.T) {
	ch, err := NewChunking([]int64{3, 4, 2})
	require.NoError(t, err)

	// [2, 8) clips chunk 0 to one element, keeps chunk 1 whole, clips
	// chunk 2 to one element.
	s := ch.section(2, 8)
	require.Equal(t, []int64{1, 4, 1}, s.Lengths())
	require.Equal(t, int64(6), s.Len())

	// Range inside one chunk.
	s = ch.section(4, 6)
	require.Equal(t, []int64{2}, s.Lengths())

	// Empty range.
	s = ch.section(3, 3)
	require.Equal(t, int64(0), s.Len())
	require.Equal(t, 0, s.NumChunks())
}
