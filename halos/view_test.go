package halos

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkordt/scida/internal/chunked"
)

func testContainers(t *testing.T) (ContainerSet, *Index, []float64) {
	t.Helper()
	counts, nsubs := testCounts()
	ix, err := BuildIndex(&Catalog{GroupNsubs: nsubs, Species: []SpeciesCounts{counts}})
	require.NoError(t, err)

	ch := mustChunking(t, []int64{5, 3})
	mass := make([]float64, 8)
	for i := range mass {
		mass[i] = float64(i + 1)
	}
	c := NewContainer("dm")
	f, err := chunked.FromFloat64s(mass, ch)
	require.NoError(t, err)
	require.NoError(t, c.SetField("Masses", f))
	f, err = chunked.FromFloat64s(make([]float64, 8), ch)
	require.NoError(t, err)
	require.NoError(t, c.SetField("Potential", f))

	return ContainerSet{"dm": c}, ix, mass
}

func TestHaloViewLengths(t *testing.T) {
	cs, ix, _ := testContainers(t)
	counts, _ := testCounts()

	// len(haloView(g)) equals the declared count of group g.
	for g := int64(0); g < ix.NumGroups(); g++ {
		view, err := HaloView(g, ix, cs)
		require.NoError(t, err)
		require.Equal(t, counts.GroupCounts[g], view["dm"].Len(), "group %d", g)
	}
}

// Halo views taken in group-id order tile the particle axis exactly.
func TestHaloViewTiling(t *testing.T) {
	cs, ix, mass := testContainers(t)

	var rebuilt []float64
	for g := int64(0); g < ix.NumGroups(); g++ {
		view, err := HaloView(g, ix, cs)
		require.NoError(t, err)
		f, ok := view["dm"].Field("Masses")
		require.True(t, ok)
		vals, err := chunked.Materialize(f)
		require.NoError(t, err)
		rebuilt = append(rebuilt, vals...)
	}
	require.Equal(t, mass, rebuilt)
}

func TestHaloViewEmptyGroup(t *testing.T) {
	cs, ix, _ := testContainers(t)

	view, err := HaloView(1, ix, cs)
	require.NoError(t, err)
	require.Equal(t, int64(0), view["dm"].Len())

	f, ok := view["dm"].Field("Masses")
	require.True(t, ok)
	vals, err := chunked.Materialize(f)
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestHaloViewPreservesStructure(t *testing.T) {
	cs, ix, _ := testContainers(t)

	view, err := HaloView(2, ix, cs)
	require.NoError(t, err)
	require.Equal(t, cs["dm"].FieldNames(), view["dm"].FieldNames())
	require.Equal(t, "dm", view["dm"].Species())
}

func TestHaloViewBadID(t *testing.T) {
	cs, ix, _ := testContainers(t)

	_, err := HaloView(-1, ix, cs)
	require.ErrorIs(t, err, ErrGroupIDRange)
	_, err = HaloView(3, ix, cs)
	require.ErrorIs(t, err, ErrGroupIDRange)
}

func TestHaloViewLengthMismatch(t *testing.T) {
	_, ix, _ := testContainers(t)

	c := NewContainer("dm")
	f, err := chunked.FromFloat64s(make([]float64, 7), chunked.SingleChunk(7))
	require.NoError(t, err)
	require.NoError(t, c.SetField("Masses", f))

	_, err = HaloView(0, ix, ContainerSet{"dm": c})
	require.ErrorIs(t, err, ErrMembershipRange)
}

func TestHaloViewUnknownSpecies(t *testing.T) {
	_, ix, _ := testContainers(t)

	c := NewContainer("stars")
	f, err := chunked.FromFloat64s(make([]float64, 8), chunked.SingleChunk(8))
	require.NoError(t, err)
	require.NoError(t, c.SetField("Masses", f))

	_, err = HaloView(0, ix, ContainerSet{"stars": c})
	require.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestHaloViewIsLazy(t *testing.T) {
	counts, nsubs := testCounts()
	ix, err := BuildIndex(&Catalog{GroupNsubs: nsubs, Species: []SpeciesCounts{counts}})
	require.NoError(t, err)

	var reads atomic.Int64
	ch := mustChunking(t, []int64{5, 3})
	f := chunked.Compute(ch, func(lo, hi int64, dst []float64) error {
		reads.Add(1)
		return nil
	})
	c := NewContainer("dm")
	require.NoError(t, c.SetField("Masses", f))

	view, err := HaloView(2, ix, ContainerSet{"dm": c})
	require.NoError(t, err)
	require.Equal(t, int64(0), reads.Load(), "constructing a view must not read data")

	vf, _ := view["dm"].Field("Masses")
	_, err = chunked.Materialize(vf)
	require.NoError(t, err)
	require.Equal(t, int64(1), reads.Load(), "group 2 sits entirely in the second chunk")
}

func TestSubhaloView(t *testing.T) {
	cs, ix, mass := testContainers(t)

	// Subhalo 2 spans particles [5, 7).
	view, err := SubhaloView(2, ix, cs)
	require.NoError(t, err)
	require.Equal(t, int64(2), view["dm"].Len())

	f, _ := view["dm"].Field("Masses")
	vals, err := chunked.Materialize(f)
	require.NoError(t, err)
	require.Equal(t, mass[5:7], vals)

	_, err = SubhaloView(3, ix, cs)
	require.ErrorIs(t, err, ErrGroupIDRange)
}
