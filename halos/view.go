package halos

import "fmt"

// HaloView restricts every container to the particles of one group. The
// result mirrors the input set: same species, same field names and order,
// with each field lazily sliced to [offset[g], offset[g+1]) for that
// species. A group with zero particles of some species yields zero-length
// fields for that species rather than an error. Nothing is read eagerly,
// and the view is recomputed from the offset index on every call.
func HaloView(groupID int64, ix *Index, cs ContainerSet) (ContainerSet, error) {
	if groupID < 0 || groupID >= ix.NumGroups() {
		return nil, fmt.Errorf("%w: group %d, catalog has %d groups", ErrGroupIDRange, groupID, ix.NumGroups())
	}
	return restrict(cs, ix, func(sp *OffsetIndex) (int64, int64, error) {
		return sp.GroupRange(groupID)
	})
}

// SubhaloView restricts every container to the particles of one subhalo,
// identified by its catalog-wide subhalo id.
func SubhaloView(subhaloID int64, ix *Index, cs ContainerSet) (ContainerSet, error) {
	if subhaloID < 0 || subhaloID >= ix.NumSubhalos() {
		return nil, fmt.Errorf("%w: subhalo %d, catalog has %d subhalos", ErrGroupIDRange, subhaloID, ix.NumSubhalos())
	}
	return restrict(cs, ix, func(sp *OffsetIndex) (int64, int64, error) {
		return sp.SubhaloRange(subhaloID)
	})
}

// restrict applies a per-species particle range to every container.
func restrict(cs ContainerSet, ix *Index, rangeOf func(*OffsetIndex) (int64, int64, error)) (ContainerSet, error) {
	out := make(ContainerSet, len(cs))
	for species, c := range cs {
		sp, err := ix.Species(species)
		if err != nil {
			return nil, err
		}
		if c.Len() != sp.TotalParticles() {
			return nil, fmt.Errorf("%w: species %q container has %d particles, offsets end at %d",
				ErrMembershipRange, species, c.Len(), sp.TotalParticles())
		}
		lo, hi, err := rangeOf(sp)
		if err != nil {
			return nil, err
		}
		view, err := c.section(lo, hi)
		if err != nil {
			return nil, err
		}
		out[species] = view
	}
	return out, nil
}
