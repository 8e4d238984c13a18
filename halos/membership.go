package halos

import (
	"fmt"
	"sort"

	"github.com/arkordt/scida/internal/chunked"
)

// UnboundSubhaloID is the SubhaloID value of particles that belong to a
// group but to none of its subhalos.
const UnboundSubhaloID int64 = -1

// Conventional names of the membership fields attached to a container.
const (
	GroupIDField   = "GroupID"
	SubhaloIDField = "SubhaloID"
)

// MembershipFields derives the per-particle GroupID and SubhaloID fields for
// a container with the given chunking. Both fields are lazy: a chunk is
// computed only when read, by locating the group containing the chunk start
// with a binary search and then filling forward in runs, so a chunk wholly
// inside one group costs a single lookup and a chunk crossing many small
// groups stays linear in the chunk length.
//
// GroupID values lie in [0, NumGroups()); SubhaloID values are the
// particle's zero-based subhalo rank within its group (0 is the central
// subhalo) or UnboundSubhaloID.
//
// The chunking must cover exactly the particles the offset table accounts
// for; any other length returns ErrMembershipRange.
func (ix *OffsetIndex) MembershipFields(ch chunked.Chunking) (groupID, subhaloID *chunked.Int64Field, err error) {
	if ch.Len() != ix.TotalParticles() {
		return nil, nil, fmt.Errorf("%w: species %q container has %d particles, offsets end at %d",
			ErrMembershipRange, ix.species, ch.Len(), ix.TotalParticles())
	}
	groupID = chunked.ComputeInt64(ch, ix.fillGroupIDs)
	subhaloID = chunked.ComputeInt64(ch, ix.fillSubhaloIDs)
	return groupID, subhaloID, nil
}

// AttachMembership derives the membership fields for a container's chunking
// and stores them under GroupIDField and SubhaloIDField, alongside the
// container's existing fields.
func AttachMembership(c *Container, ix *OffsetIndex) error {
	groupID, subhaloID, err := ix.MembershipFields(c.Chunking())
	if err != nil {
		return err
	}
	if err := c.SetField(GroupIDField, groupID); err != nil {
		return err
	}
	return c.SetField(SubhaloIDField, subhaloID)
}

// fillGroupIDs writes the group id of every particle in [lo, hi) into dst.
func (ix *OffsetIndex) fillGroupIDs(lo, hi int64, dst []int64) error {
	if lo >= hi {
		return nil
	}
	g := ix.groupAt(lo)
	for pos := lo; pos < hi; {
		// Zero-particle groups contain no positions; step over them.
		for ix.groupOff[g+1] <= pos {
			g++
		}
		end := ix.groupOff[g+1]
		if end > hi {
			end = hi
		}
		for i := pos; i < end; i++ {
			dst[i-lo] = g
		}
		pos = end
	}
	return nil
}

// fillSubhaloIDs writes the within-group subhalo rank of every particle in
// [lo, hi) into dst, with UnboundSubhaloID for particles past their group's
// last subhalo.
func (ix *OffsetIndex) fillSubhaloIDs(lo, hi int64, dst []int64) error {
	if lo >= hi {
		return nil
	}
	g := ix.groupAt(lo)
	for pos := lo; pos < hi; {
		for ix.groupOff[g+1] <= pos {
			g++
		}
		gEnd := ix.groupOff[g+1]
		if gEnd > hi {
			gEnd = hi
		}
		pos = ix.fillGroupRanks(g, pos, gEnd, lo, dst)
	}
	return nil
}

// fillGroupRanks fills ranks for the particles of one group in [pos, gEnd)
// and returns gEnd. base is the global position of dst[0].
func (ix *OffsetIndex) fillGroupRanks(g, pos, gEnd, base int64, dst []int64) int64 {
	gStart := ix.groupOff[g]
	sLo, sHi := ix.firstSub[g], ix.firstSub[g+1]
	nsub := int(sHi - sLo)
	rel := pos - gStart

	// First subhalo whose span ends past the current position. Zero-count
	// subhalos end at their own start and are skipped.
	k := sort.Search(nsub, func(i int) bool {
		return ix.subOff[sLo+int64(i)+1]-ix.subOff[sLo] > rel
	})

	for pos < gEnd {
		if k >= nsub {
			// Unbound tail of the group.
			for i := pos; i < gEnd; i++ {
				dst[i-base] = UnboundSubhaloID
			}
			return gEnd
		}
		subEnd := gStart + (ix.subOff[sLo+int64(k)+1] - ix.subOff[sLo])
		end := subEnd
		if end > gEnd {
			end = gEnd
		}
		for i := pos; i < end; i++ {
			dst[i-base] = int64(k)
		}
		pos = end
		if pos == subEnd {
			k++
		}
	}
	return gEnd
}
