package halos

import "github.com/arkordt/scida/internal/chunked"

// span is one id's contiguous particle range. Group spans tile the whole
// particle axis; subhalo spans leave gaps where unbound particles sit.
type span struct {
	lo, hi int64
	id     int64
}

// block is a group-aligned sub-partition of one storage chunk: it never
// spans two ids and never crosses a chunk boundary. In the common case of a
// chunk wholly inside one large group, the block is the entire chunk.
type block struct {
	chunk  int
	lo, hi int64 // global particle range, half-open
	id     int64
}

// groupSpans returns the particle span of every nonempty group.
func (ix *OffsetIndex) groupSpans() []span {
	spans := make([]span, 0, ix.NumGroups())
	for g := int64(0); g < ix.NumGroups(); g++ {
		if ix.groupOff[g] < ix.groupOff[g+1] {
			spans = append(spans, span{lo: ix.groupOff[g], hi: ix.groupOff[g+1], id: g})
		}
	}
	return spans
}

// subhaloSpans returns the particle span of every nonempty subhalo.
func (ix *OffsetIndex) subhaloSpans() []span {
	spans := make([]span, 0, ix.NumSubhalos())
	for s := int64(0); s < ix.NumSubhalos(); s++ {
		lo, hi, _ := ix.SubhaloRange(s)
		if lo < hi {
			spans = append(spans, span{lo: lo, hi: hi, id: s})
		}
	}
	return spans
}

// partitionBlocks intersects storage chunks with id spans, merging the two
// partitionings into blocks that each map to exactly one id. Both inputs are
// sorted by start position, so a single sweep suffices: O(chunks + spans).
func partitionBlocks(ch chunked.Chunking, spans []span) []block {
	var blocks []block
	j := 0
	for c := 0; c < ch.NumChunks(); c++ {
		clo, chi := ch.Bounds(c)
		if clo == chi {
			continue
		}
		for j < len(spans) && spans[j].hi <= clo {
			j++
		}
		for k := j; k < len(spans) && spans[k].lo < chi; k++ {
			lo, hi := spans[k].lo, spans[k].hi
			if lo < clo {
				lo = clo
			}
			if hi > chi {
				hi = chi
			}
			blocks = append(blocks, block{chunk: c, lo: lo, hi: hi, id: spans[k].id})
		}
	}
	return blocks
}
