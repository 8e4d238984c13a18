// Package chunked provides lazily evaluated one-dimensional arrays
// partitioned into storage chunks of known, possibly irregular, lengths.
// Fields describe work; values are materialized only when a caller forces
// them through one of the Materialize helpers or reads a chunk directly.
package chunked

import (
	"fmt"
	"sort"
)

// Chunking describes the partition of an array axis into storage chunks.
// It is stored as cumulative chunk start positions, so starts[0] == 0 and
// starts[NumChunks()] is the total length.
type Chunking struct {
	starts []int64
}

// NewChunking builds a Chunking from individual chunk lengths.
func NewChunking(lengths []int64) (Chunking, error) {
	starts := make([]int64, len(lengths)+1)
	for i, n := range lengths {
		if n < 0 {
			return Chunking{}, fmt.Errorf("chunk %d has negative length %d", i, n)
		}
		starts[i+1] = starts[i] + n
	}
	return Chunking{starts: starts}, nil
}

// SingleChunk returns a Chunking with one chunk covering n elements.
func SingleChunk(n int64) Chunking {
	return Chunking{starts: []int64{0, n}}
}

// NumChunks returns the number of storage chunks.
func (c Chunking) NumChunks() int {
	if len(c.starts) == 0 {
		return 0
	}
	return len(c.starts) - 1
}

// Len returns the total number of elements across all chunks.
func (c Chunking) Len() int64 {
	if len(c.starts) == 0 {
		return 0
	}
	return c.starts[len(c.starts)-1]
}

// Bounds returns the half-open element range [lo, hi) of chunk i.
func (c Chunking) Bounds(i int) (lo, hi int64) {
	return c.starts[i], c.starts[i+1]
}

// FindChunk returns the index of the chunk containing element position pos.
// Empty chunks never contain any position and are skipped.
func (c Chunking) FindChunk(pos int64) int {
	// First chunk whose end is past pos.
	return sort.Search(c.NumChunks(), func(i int) bool {
		return c.starts[i+1] > pos
	})
}

// Lengths returns the individual chunk lengths.
func (c Chunking) Lengths() []int64 {
	out := make([]int64, c.NumChunks())
	for i := range out {
		out[i] = c.starts[i+1] - c.starts[i]
	}
	return out
}

// Equal reports whether two chunkings have identical chunk boundaries.
func (c Chunking) Equal(other Chunking) bool {
	if len(c.starts) != len(other.starts) {
		return false
	}
	for i, s := range c.starts {
		if s != other.starts[i] {
			return false
		}
	}
	return true
}

// section returns the chunking that results from restricting c to the
// element range [lo, hi): the surviving chunks clipped to the range.
func (c Chunking) section(lo, hi int64) Chunking {
	starts := []int64{0}
	for i := 0; i < c.NumChunks(); i++ {
		clo, chi := c.Bounds(i)
		if chi <= lo || clo >= hi {
			continue
		}
		if clo < lo {
			clo = lo
		}
		if chi > hi {
			chi = hi
		}
		starts = append(starts, starts[len(starts)-1]+(chi-clo))
	}
	return Chunking{starts: starts}
}
