package halos

import (
	"fmt"
	"sort"
)

// OffsetIndex holds the cumulative particle-count boundaries of one species:
// for every group and every subhalo, the half-open particle index range its
// members occupy. It is built once per catalog/snapshot pair, validated
// eagerly, and never mutated afterwards, so it is safe for concurrent use by
// any number of views and grouped jobs.
//
// Precondition: particle storage is sorted by ascending group id, within a
// group by ascending subhalo id (central subhalo first), with unbound
// particles trailing within their group. This is the layout written by the
// standard structure finders and is not exhaustively verified; only count
// totals are checked.
type OffsetIndex struct {
	species string

	// groupOff has numGroups+1 entries; group g spans
	// [groupOff[g], groupOff[g+1]).
	groupOff []int64

	// subOff has numSubhalos+1 entries: cumulative sums of per-subhalo
	// counts in catalog order. Subhalo particle positions are recovered
	// relative to the owning group's start.
	subOff []int64

	// firstSub has numGroups+1 entries; group g owns subhalos
	// [firstSub[g], firstSub[g+1]).
	firstSub []int64

	// subGroup maps each subhalo to its owning group.
	subGroup []int64
}

// BuildOffsetIndex converts per-group and per-subhalo particle counts into
// an OffsetIndex for one species. groupNsubs[g] is the number of subhalos
// owned by group g; total is the species' total particle count as reported
// by the snapshot, or 0 when unknown.
//
// All catalog invariants are checked here, eagerly, so that downstream
// operations can assume a consistent index.
func BuildOffsetIndex(counts SpeciesCounts, groupNsubs []int64, total int64) (*OffsetIndex, error) {
	if len(groupNsubs) != len(counts.GroupCounts) {
		return nil, fmt.Errorf("%w: species %q has %d group counts but %d subhalo-count groups",
			ErrInconsistentCatalog, counts.Species, len(counts.GroupCounts), len(groupNsubs))
	}

	ix := &OffsetIndex{species: counts.Species}

	ix.groupOff = make([]int64, len(counts.GroupCounts)+1)
	for g, n := range counts.GroupCounts {
		if n < 0 {
			return nil, fmt.Errorf("%w: species %q group %d has negative count %d",
				ErrInconsistentCatalog, counts.Species, g, n)
		}
		ix.groupOff[g+1] = ix.groupOff[g] + n
	}
	if total > 0 && ix.groupOff[len(ix.groupOff)-1] != total {
		return nil, fmt.Errorf("%w: species %q group counts sum to %d, snapshot reports %d particles",
			ErrInconsistentCatalog, counts.Species, ix.groupOff[len(ix.groupOff)-1], total)
	}

	ix.firstSub = make([]int64, len(groupNsubs)+1)
	for g, ns := range groupNsubs {
		if ns < 0 {
			return nil, fmt.Errorf("%w: group %d has negative subhalo count %d",
				ErrInconsistentCatalog, g, ns)
		}
		ix.firstSub[g+1] = ix.firstSub[g] + ns
	}
	numSub := ix.firstSub[len(ix.firstSub)-1]
	if numSub != int64(len(counts.SubhaloCounts)) {
		return nil, fmt.Errorf("%w: species %q has %d subhalo counts but groups own %d subhalos",
			ErrInconsistentCatalog, counts.Species, len(counts.SubhaloCounts), numSub)
	}

	ix.subOff = make([]int64, numSub+1)
	ix.subGroup = make([]int64, numSub)
	for s, n := range counts.SubhaloCounts {
		if n < 0 {
			return nil, fmt.Errorf("%w: species %q subhalo %d has negative count %d",
				ErrInconsistentCatalog, counts.Species, s, n)
		}
		ix.subOff[s+1] = ix.subOff[s] + n
	}
	for g := range groupNsubs {
		lo, hi := ix.firstSub[g], ix.firstSub[g+1]
		bound := ix.subOff[hi] - ix.subOff[lo]
		if bound > counts.GroupCounts[g] {
			return nil, fmt.Errorf("%w: species %q group %d subhalo counts sum to %d, exceeding group count %d",
				ErrInconsistentCatalog, counts.Species, g, bound, counts.GroupCounts[g])
		}
		for s := lo; s < hi; s++ {
			ix.subGroup[s] = int64(g)
		}
	}

	return ix, nil
}

// Species returns the particle species this index covers.
func (ix *OffsetIndex) Species() string { return ix.species }

// NumGroups returns the number of groups.
func (ix *OffsetIndex) NumGroups() int64 { return int64(len(ix.groupOff)) - 1 }

// NumSubhalos returns the total number of subhalos.
func (ix *OffsetIndex) NumSubhalos() int64 { return int64(len(ix.subGroup)) }

// TotalParticles returns the total particle count across all groups.
func (ix *OffsetIndex) TotalParticles() int64 { return ix.groupOff[len(ix.groupOff)-1] }

// GroupOffsets returns the cumulative group offset table, with
// NumGroups()+1 entries. The returned slice must not be modified.
func (ix *OffsetIndex) GroupOffsets() []int64 { return ix.groupOff }

// SubhaloOffsets returns the cumulative subhalo count table, with
// NumSubhalos()+1 entries. The returned slice must not be modified.
func (ix *OffsetIndex) SubhaloOffsets() []int64 { return ix.subOff }

// GroupRange returns the half-open particle index range of group g.
func (ix *OffsetIndex) GroupRange(g int64) (lo, hi int64, err error) {
	if g < 0 || g >= ix.NumGroups() {
		return 0, 0, fmt.Errorf("%w: group %d, catalog has %d groups", ErrGroupIDRange, g, ix.NumGroups())
	}
	return ix.groupOff[g], ix.groupOff[g+1], nil
}

// SubhaloRange returns the half-open particle index range of subhalo s.
func (ix *OffsetIndex) SubhaloRange(s int64) (lo, hi int64, err error) {
	if s < 0 || s >= ix.NumSubhalos() {
		return 0, 0, fmt.Errorf("%w: subhalo %d, catalog has %d subhalos", ErrGroupIDRange, s, ix.NumSubhalos())
	}
	g := ix.subGroup[s]
	base := ix.groupOff[g] + (ix.subOff[s] - ix.subOff[ix.firstSub[g]])
	return base, base + (ix.subOff[s+1] - ix.subOff[s]), nil
}

// GroupOfSubhalo returns the group owning subhalo s.
func (ix *OffsetIndex) GroupOfSubhalo(s int64) (int64, error) {
	if s < 0 || s >= ix.NumSubhalos() {
		return 0, fmt.Errorf("%w: subhalo %d, catalog has %d subhalos", ErrGroupIDRange, s, ix.NumSubhalos())
	}
	return ix.subGroup[s], nil
}

// GroupOf returns the group containing particle index pos. Groups with zero
// particles never contain any position.
func (ix *OffsetIndex) GroupOf(pos int64) (int64, error) {
	if pos < 0 || pos >= ix.TotalParticles() {
		return 0, fmt.Errorf("%w: particle %d outside [0, %d)", ErrMembershipRange, pos, ix.TotalParticles())
	}
	return ix.groupAt(pos), nil
}

// groupAt returns the unique g with groupOff[g] <= pos < groupOff[g+1].
// The caller guarantees pos is in range.
func (ix *OffsetIndex) groupAt(pos int64) int64 {
	return int64(sort.Search(int(ix.NumGroups()), func(g int) bool {
		return ix.groupOff[g+1] > pos
	}))
}

// Index holds one OffsetIndex per species, built from a single catalog.
// Like its per-species tables it is immutable after construction.
type Index struct {
	numGroups   int64
	numSubhalos int64
	species     map[string]*OffsetIndex
}

// BuildIndex builds offset tables for every species in the catalog.
// It fails on the first inconsistent species without constructing anything.
func BuildIndex(cat *Catalog) (*Index, error) {
	ix := &Index{
		numGroups:   cat.NumGroups(),
		numSubhalos: cat.NumSubhalos(),
		species:     make(map[string]*OffsetIndex, len(cat.Species)),
	}
	for _, sc := range cat.Species {
		if _, ok := ix.species[sc.Species]; ok {
			return nil, fmt.Errorf("%w: duplicate species %q", ErrInconsistentCatalog, sc.Species)
		}
		sp, err := BuildOffsetIndex(sc, cat.GroupNsubs, sc.TotalParticles)
		if err != nil {
			return nil, err
		}
		ix.species[sc.Species] = sp
	}
	return ix, nil
}

// NumGroups returns the number of groups in the catalog.
func (ix *Index) NumGroups() int64 { return ix.numGroups }

// NumSubhalos returns the total number of subhalos in the catalog.
func (ix *Index) NumSubhalos() int64 { return ix.numSubhalos }

// Species returns the offset table of one species.
func (ix *Index) Species(name string) (*OffsetIndex, error) {
	sp, ok := ix.species[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, name)
	}
	return sp, nil
}

// SpeciesNames returns the indexed species in sorted order.
func (ix *Index) SpeciesNames() []string {
	names := make([]string, 0, len(ix.species))
	for name := range ix.species {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
