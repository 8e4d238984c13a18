package halos

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/arkordt/scida/internal/chunked"
)

// GroupFunc is a user-supplied aggregation. It receives one group's (or
// subhalo's) particles for every job field, materialized as plain in-memory
// slices aligned across fields, and returns an arbitrary per-group result.
// This materialization is the one point where data leaves the lazy chunked
// representation.
type GroupFunc func(id int64, fields map[string][]float64) (any, error)

// Aggregation is what a grouped job applies per group: either a named
// reduction or a custom function. The variant is resolved once, at job
// construction.
type Aggregation struct {
	reduce Reduction
	apply  GroupFunc
}

// Reduce selects a named reduction.
func Reduce(r Reduction) Aggregation { return Aggregation{reduce: r} }

// Apply selects a custom per-group aggregation function.
func Apply(fn GroupFunc) Aggregation { return Aggregation{apply: fn} }

// Job is an unevaluated grouped aggregation over one species: one or more
// co-chunked fields, a grouping granularity, and an aggregation. Building a
// job validates its inputs and partitions the storage chunks into
// group-aligned blocks but reads no data; Evaluate forces the computation.
// Jobs are independent and disposable; a job may be evaluated any number of
// times with identical results.
type Job struct {
	id     uuid.UUID
	ix     *OffsetIndex
	names  []string
	fields map[string]chunked.Field
	agg    Aggregation
	opts   *jobOptions

	numIDs int64
	spans  []span
	blocks []block
}

// NewJob builds a grouped job over the given fields, which must all have
// the species' canonical particle length and identical chunking
// (ErrFieldMismatch otherwise). Caller mistakes surface here, before any
// computation is paid for.
func NewJob(ix *OffsetIndex, fields map[string]chunked.Field, agg Aggregation, opts ...JobOption) (*Job, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields supplied", ErrFieldMismatch)
	}
	if agg.apply == nil && !agg.reduce.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReduction, string(agg.reduce))
	}

	o := defaultJobOptions()
	for _, opt := range opts {
		opt(o)
	}

	j := &Job{
		id:     uuid.New(),
		ix:     ix,
		fields: fields,
		agg:    agg,
		opts:   o,
	}
	for name := range fields {
		j.names = append(j.names, name)
	}
	sort.Strings(j.names)

	ch := fields[j.names[0]].Chunking()
	for _, name := range j.names {
		f := fields[name]
		if f.Len() != ix.TotalParticles() {
			return nil, fmt.Errorf("%w: field %q has %d particles, species %q has %d",
				ErrFieldMismatch, name, f.Len(), ix.species, ix.TotalParticles())
		}
		if !f.Chunking().Equal(ch) {
			return nil, fmt.Errorf("%w: field %q is chunked differently from field %q",
				ErrFieldMismatch, name, j.names[0])
		}
	}

	switch o.granularity {
	case BySubhalo:
		j.numIDs = ix.NumSubhalos()
		j.spans = ix.subhaloSpans()
	default:
		j.numIDs = ix.NumGroups()
		j.spans = ix.groupSpans()
	}
	j.blocks = partitionBlocks(ch, j.spans)

	return j, nil
}

// ID returns the job's unique identifier, used in logs.
func (j *Job) ID() uuid.UUID { return j.id }

// Result is the per-group output of an evaluated job, index-aligned to
// group id (or subhalo id under BySubhalo).
type Result struct {
	// Values holds one entry per job field for named reductions. A group
	// with zero particles gets the reduction's identity value, or the
	// job's fill value for reductions without one.
	Values map[string][]float64

	// PerGroup holds the custom aggregation results. Entries of groups the
	// function never ran for are nil.
	PerGroup []any

	// Present reports which ids had at least one particle.
	Present []bool
}

// Evaluate forces the job. Blocks are processed chunk-parallel in no
// particular order; results are index-aligned to id regardless. An error
// from a custom aggregation aborts evaluation and is returned wrapped in a
// *GroupFuncError naming the offending group.
func (j *Job) Evaluate(ctx context.Context) (*Result, error) {
	start := time.Now()

	var res *Result
	var err error
	if j.agg.apply != nil {
		res, err = j.evaluateApply(ctx)
	} else {
		res, err = j.evaluateReduce(ctx)
	}
	if err != nil {
		return nil, err
	}

	if m := j.opts.metrics; m != nil {
		m.JobsEvaluated.Inc()
		m.BlocksProcessed.Add(float64(len(j.blocks)))
		m.EvalDuration.Observe(time.Since(start).Seconds())
	}
	level.Debug(j.opts.logger).Log(
		"msg", "evaluated grouped job",
		"job", j.id,
		"species", j.ix.species,
		"fields", len(j.names),
		"blocks", len(j.blocks),
		"duration", time.Since(start),
	)
	return res, nil
}

// evaluateReduce runs a named reduction: one task per storage chunk, each
// reducing its group-aligned blocks independently, then a sequential merge
// of block partials into per-id results.
func (j *Job) evaluateReduce(ctx context.Context) (*Result, error) {
	ch := j.fields[j.names[0]].Chunking()
	partials := make([][]accum, len(j.blocks))

	p := pool.New().WithMaxGoroutines(j.opts.parallelism).WithContext(ctx)
	for _, run := range j.chunkRuns() {
		run := run
		p.Go(func(context.Context) error {
			c := j.blocks[run[0]].chunk
			clo, _ := ch.Bounds(c)
			bufs := make([][]float64, len(j.names))
			for fi, name := range j.names {
				vals, err := j.fields[name].ReadChunk(c)
				if err != nil {
					return fmt.Errorf("reading field %q chunk %d: %w", name, c, err)
				}
				bufs[fi] = vals
			}
			for bi := run[0]; bi < run[1]; bi++ {
				b := j.blocks[bi]
				acc := make([]accum, len(j.names))
				for fi := range bufs {
					for _, v := range bufs[fi][b.lo-clo : b.hi-clo] {
						acc[fi].add(v)
					}
				}
				partials[bi] = acc
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	merged := make([][]accum, len(j.names))
	for fi := range merged {
		merged[fi] = make([]accum, j.numIDs)
	}
	for bi, b := range j.blocks {
		for fi := range j.names {
			merged[fi][b.id].merge(partials[bi][fi])
		}
	}

	res := &Result{
		Values:  make(map[string][]float64, len(j.names)),
		Present: make([]bool, j.numIDs),
	}
	for _, s := range j.spans {
		res.Present[s.id] = true
	}
	for fi, name := range j.names {
		vals := make([]float64, j.numIDs)
		for id := int64(0); id < j.numIDs; id++ {
			v, err := j.agg.reduce.finalize(merged[fi][id], j.opts.fill)
			if err != nil {
				return nil, err
			}
			vals[id] = v
		}
		res.Values[name] = vals
	}
	return res, nil
}

// evaluateApply runs the custom aggregation: one task per nonempty id,
// materializing that id's slice of every field. Each task writes a distinct
// result slot, so the pool barrier is the only synchronization.
func (j *Job) evaluateApply(ctx context.Context) (*Result, error) {
	res := &Result{
		PerGroup: make([]any, j.numIDs),
		Present:  make([]bool, j.numIDs),
	}

	p := pool.New().WithMaxGoroutines(j.opts.parallelism).WithContext(ctx)
	for _, s := range j.spans {
		s := s
		p.Go(func(context.Context) error {
			out, err := j.applyOne(s.id, s.lo, s.hi)
			if err != nil {
				return err
			}
			res.PerGroup[s.id] = out
			res.Present[s.id] = true
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	if j.opts.emptyGroups {
		for id := int64(0); id < j.numIDs; id++ {
			if res.Present[id] {
				continue
			}
			out, err := j.applyOne(id, 0, 0)
			if err != nil {
				return nil, err
			}
			res.PerGroup[id] = out
		}
	}
	return res, nil
}

// applyOne materializes [lo, hi) of every field and calls the user function
// for one id.
func (j *Job) applyOne(id, lo, hi int64) (any, error) {
	fields := make(map[string][]float64, len(j.names))
	for _, name := range j.names {
		vals, err := chunked.MaterializeRange(j.fields[name], lo, hi)
		if err != nil {
			return nil, fmt.Errorf("materializing field %q for group %d: %w", name, id, err)
		}
		fields[name] = vals
	}
	out, err := j.agg.apply(id, fields)
	if err != nil {
		return nil, &GroupFuncError{Group: id, Lo: lo, Hi: hi, Err: err}
	}
	return out, nil
}

// chunkRuns returns [start, end) ranges of j.blocks sharing one storage
// chunk. Blocks come out of partitionBlocks ordered by chunk, so runs are
// contiguous.
func (j *Job) chunkRuns() [][2]int {
	var runs [][2]int
	for i := 0; i < len(j.blocks); {
		k := i + 1
		for k < len(j.blocks) && j.blocks[k].chunk == j.blocks[i].chunk {
			k++
		}
		runs = append(runs, [2]int{i, k})
		i = k
	}
	return runs
}
