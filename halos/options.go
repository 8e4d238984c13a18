package halos

import (
	"math"
	"runtime"

	"github.com/go-kit/log"
)

// Granularity selects the partitioning a grouped job reduces over.
type Granularity int

const (
	// ByGroup produces one result per group, index-aligned to group id.
	ByGroup Granularity = iota

	// BySubhalo produces one result per subhalo, index-aligned to
	// catalog-wide subhalo id. Unbound particles belong to no subhalo and
	// contribute to nothing.
	BySubhalo
)

// JobOption configures a grouped job.
type JobOption func(*jobOptions)

type jobOptions struct {
	granularity Granularity
	parallelism int
	fill        float64
	emptyGroups bool
	logger      log.Logger
	metrics     *Metrics
}

func defaultJobOptions() *jobOptions {
	return &jobOptions{
		granularity: ByGroup,
		parallelism: runtime.GOMAXPROCS(0),
		fill:        math.NaN(),
		logger:      log.NewNopLogger(),
	}
}

// WithGranularity sets whether results are per group or per subhalo.
func WithGranularity(g Granularity) JobOption {
	return func(o *jobOptions) { o.granularity = g }
}

// WithParallelism caps the number of goroutines used during evaluation.
// Values below 1 are treated as 1.
func WithParallelism(n int) JobOption {
	return func(o *jobOptions) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}

// WithFillValue sets the result for empty groups under reductions with no
// identity element (min, max, mean). The default is NaN.
func WithFillValue(v float64) JobOption {
	return func(o *jobOptions) { o.fill = v }
}

// WithEmptyGroups makes a custom aggregation function run for empty groups
// too, receiving zero-length field slices. By default empty groups are
// skipped and their result entry stays nil.
func WithEmptyGroups() JobOption {
	return func(o *jobOptions) { o.emptyGroups = true }
}

// WithLogger sets the logger used during evaluation.
func WithLogger(l log.Logger) JobOption {
	return func(o *jobOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches evaluation metrics.
func WithMetrics(m *Metrics) JobOption {
	return func(o *jobOptions) { o.metrics = m }
}
