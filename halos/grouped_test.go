package halos

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arkordt/scida/internal/chunked"
)

// massField holds values 1..8, so group sums are easy to state: group 0
// (particles 0..4) sums to 15, group 1 is empty, group 2 (particles 5..7)
// sums to 21.
func massField(t *testing.T, lengths []int64) chunked.Field {
	t.Helper()
	ch := mustChunking(t, lengths)
	vals := make([]float64, ch.Len())
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	f, err := chunked.FromFloat64s(vals, ch)
	require.NoError(t, err)
	return f
}

func TestGroupedSum(t *testing.T) {
	ix := testIndex(t)

	for _, lengths := range [][]int64{{8}, {5, 3}, {3, 5}, {2, 2, 2, 2}, {1, 1, 1, 1, 1, 1, 1, 1}} {
		f := massField(t, lengths)
		job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Sum))
		require.NoError(t, err)

		res, err := job.Evaluate(context.Background())
		require.NoError(t, err)
		require.Equal(t, []float64{15, 0, 21}, res.Values["Masses"], "chunking %v", lengths)
		require.Equal(t, []bool{true, false, true}, res.Present)
	}
}

func TestGroupedReductions(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})

	cases := []struct {
		reduction Reduction
		want      []float64
	}{
		{Count, []float64{5, 0, 3}},
		{Min, []float64{1, math.NaN(), 6}},
		{Max, []float64{5, math.NaN(), 8}},
		{Mean, []float64{3, math.NaN(), 7}},
	}
	for _, tc := range cases {
		job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(tc.reduction))
		require.NoError(t, err)
		res, err := job.Evaluate(context.Background())
		require.NoError(t, err)

		got := res.Values["Masses"]
		require.Len(t, got, 3, "reduction %q", tc.reduction)
		for g := range tc.want {
			if math.IsNaN(tc.want[g]) {
				require.True(t, math.IsNaN(got[g]), "reduction %q group %d", tc.reduction, g)
			} else {
				require.Equal(t, tc.want[g], got[g], "reduction %q group %d", tc.reduction, g)
			}
		}
	}
}

func TestGroupedFillValue(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Max), WithFillValue(-1))
	require.NoError(t, err)
	res, err := job.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []float64{5, -1, 8}, res.Values["Masses"])
}

func TestGroupedBySubhalo(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Sum), WithGranularity(BySubhalo))
	require.NoError(t, err)
	res, err := job.Evaluate(context.Background())
	require.NoError(t, err)

	// Subhalo spans are [0,3), [3,4), [5,7); the unbound particles 4 and
	// 7 contribute to nothing.
	require.Equal(t, []float64{6, 4, 13}, res.Values["Masses"])
}

func TestGroupedIdempotent(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{3, 5})

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Sum))
	require.NoError(t, err)

	a, err := job.Evaluate(context.Background())
	require.NoError(t, err)
	b, err := job.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, a.Values, b.Values)
}

// A user aggregation counting particles must agree with the named count
// reduction for every group, including empty ones.
func TestGroupedCustomCountMatchesCount(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})
	fields := map[string]chunked.Field{"Masses": f}

	named, err := NewJob(ix, fields, Reduce(Count))
	require.NoError(t, err)
	namedRes, err := named.Evaluate(context.Background())
	require.NoError(t, err)

	custom, err := NewJob(ix, fields, Apply(func(id int64, fields map[string][]float64) (any, error) {
		return float64(len(fields["Masses"])), nil
	}), WithEmptyGroups())
	require.NoError(t, err)
	customRes, err := custom.Evaluate(context.Background())
	require.NoError(t, err)

	for g := range namedRes.Values["Masses"] {
		require.Equal(t, namedRes.Values["Masses"][g], customRes.PerGroup[g], "group %d", g)
	}
}

func TestGroupedCustomSkipsEmptyGroupsByDefault(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Apply(func(id int64, fields map[string][]float64) (any, error) {
		return id, nil
	}))
	require.NoError(t, err)
	res, err := job.Evaluate(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(0), res.PerGroup[0])
	require.Nil(t, res.PerGroup[1])
	require.Equal(t, int64(2), res.PerGroup[2])
}

// Multi-field jobs are co-partitioned: the custom function must see aligned
// slices across fields for the same group.
func TestGroupedMultiFieldAlignment(t *testing.T) {
	ix := testIndex(t)
	mass := massField(t, []int64{3, 5})
	ch := mustChunking(t, []int64{3, 5})
	double := make([]float64, 8)
	for i := range double {
		double[i] = 2 * float64(i+1)
	}
	vel, err := chunked.FromFloat64s(double, ch)
	require.NoError(t, err)

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": mass, "Velocities": vel},
		Apply(func(id int64, fields map[string][]float64) (any, error) {
			m, v := fields["Masses"], fields["Velocities"]
			require.Equal(t, len(m), len(v))
			for i := range m {
				require.Equal(t, 2*m[i], v[i], "group %d element %d", id, i)
			}
			return len(m), nil
		}))
	require.NoError(t, err)
	_, err = job.Evaluate(context.Background())
	require.NoError(t, err)
}

func TestNewJobValidation(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})

	_, err := NewJob(ix, nil, Reduce(Sum))
	require.ErrorIs(t, err, ErrFieldMismatch)

	_, err = NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce("median"))
	require.ErrorIs(t, err, ErrUnknownReduction)

	short := massField(t, []int64{7})
	_, err = NewJob(ix, map[string]chunked.Field{"Masses": short}, Reduce(Sum))
	require.ErrorIs(t, err, ErrFieldMismatch)

	other := massField(t, []int64{4, 4})
	_, err = NewJob(ix, map[string]chunked.Field{"Masses": f, "Other": other}, Reduce(Sum))
	require.ErrorIs(t, err, ErrFieldMismatch)
}

func TestGroupFuncErrorCarriesGroupID(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{5, 3})
	boom := errors.New("boom")

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f},
		Apply(func(id int64, fields map[string][]float64) (any, error) {
			if id == 2 {
				return nil, boom
			}
			return nil, nil
		}), WithParallelism(1))
	require.NoError(t, err)

	_, err = job.Evaluate(context.Background())
	require.ErrorIs(t, err, boom)

	var gfe *GroupFuncError
	require.ErrorAs(t, err, &gfe)
	require.Equal(t, int64(2), gfe.Group)
	require.Equal(t, int64(5), gfe.Lo)
	require.Equal(t, int64(8), gfe.Hi)
}

func TestGroupedMetrics(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{3, 5})
	m := NewMetrics(prometheus.NewRegistry())

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Sum), WithMetrics(m))
	require.NoError(t, err)
	_, err = job.Evaluate(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.JobsEvaluated))
	require.Equal(t, float64(len(job.blocks)), testutil.ToFloat64(m.BlocksProcessed))
}

func TestGroupedSumMatchesHaloRanges(t *testing.T) {
	ix := testIndex(t)
	f := massField(t, []int64{2, 2, 2, 2})

	job, err := NewJob(ix, map[string]chunked.Field{"Masses": f}, Reduce(Sum))
	require.NoError(t, err)
	res, err := job.Evaluate(context.Background())
	require.NoError(t, err)

	for g := int64(0); g < ix.NumGroups(); g++ {
		lo, hi, err := ix.GroupRange(g)
		require.NoError(t, err)
		vals, err := chunked.MaterializeRange(f, lo, hi)
		require.NoError(t, err)
		var want float64
		for _, v := range vals {
			want += v
		}
		require.Equal(t, want, res.Values["Masses"][g], "group %d", g)
	}
}
