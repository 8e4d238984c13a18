package chunked

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Materialize forces the whole field into one in-memory slice.
func Materialize(f Field) ([]float64, error) {
	ch := f.Chunking()
	out := make([]float64, f.Len())
	for i := 0; i < ch.NumChunks(); i++ {
		lo, hi := ch.Bounds(i)
		vals, err := f.ReadChunk(i)
		if err != nil {
			return nil, err
		}
		copy(out[lo:hi], vals)
	}
	return out, nil
}

// MaterializeRange forces only the element range [lo, hi), reading just the
// chunks that overlap it.
func MaterializeRange(f Field, lo, hi int64) ([]float64, error) {
	ch := f.Chunking()
	out := make([]float64, hi-lo)
	if hi <= lo {
		return out, nil
	}
	for i := ch.FindChunk(lo); i < ch.NumChunks(); i++ {
		clo, chi := ch.Bounds(i)
		if clo >= hi {
			break
		}
		vals, err := f.ReadChunk(i)
		if err != nil {
			return nil, err
		}
		slo, shi := clo, chi
		if slo < lo {
			slo = lo
		}
		if shi > hi {
			shi = hi
		}
		copy(out[slo-lo:shi-lo], vals[slo-clo:shi-clo])
	}
	return out, nil
}

// MaterializeParallel forces the whole field using up to workers goroutines,
// one task per storage chunk. Chunks write disjoint ranges of the output, so
// no synchronization beyond the pool barrier is needed.
func MaterializeParallel(ctx context.Context, f Field, workers int) ([]float64, error) {
	if workers < 1 {
		workers = 1
	}
	ch := f.Chunking()
	out := make([]float64, f.Len())
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i := 0; i < ch.NumChunks(); i++ {
		i := i
		p.Go(func(context.Context) error {
			lo, hi := ch.Bounds(i)
			vals, err := f.ReadChunk(i)
			if err != nil {
				return err
			}
			copy(out[lo:hi], vals)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
