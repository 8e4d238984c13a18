package halos

// SpeciesCounts holds the per-group and per-subhalo particle counts of one
// particle species, in catalog order. The counts are opaque input produced
// by the catalog reader; this package never parses catalog files itself.
type SpeciesCounts struct {
	// Species names the particle type, e.g. "dm" or "gas".
	Species string

	// GroupCounts[g] is the number of particles of this species in group g.
	GroupCounts []int64

	// SubhaloCounts[s] is the number of particles of this species in
	// subhalo s, across all groups in catalog order.
	SubhaloCounts []int64

	// TotalParticles is the species' total particle count as reported by
	// the snapshot, or 0 when unknown. When known it is checked against
	// the sum of GroupCounts at index-build time.
	TotalParticles int64
}

// Catalog is the count data of a full structure-finder catalog: the group
// topology shared by all species plus one SpeciesCounts per species.
type Catalog struct {
	// GroupNsubs[g] is the number of subhalos owned by group g. The first
	// subhalo of each group, when present, is the central subhalo.
	GroupNsubs []int64

	Species []SpeciesCounts
}

// NumGroups returns the number of groups in the catalog.
func (c *Catalog) NumGroups() int64 { return int64(len(c.GroupNsubs)) }

// NumSubhalos returns the total number of subhalos across all groups.
func (c *Catalog) NumSubhalos() int64 {
	var n int64
	for _, ns := range c.GroupNsubs {
		n += ns
	}
	return n
}
