package halos

import (
	"fmt"
	"math"
)

// Reduction names a built-in per-group reduction. All named reductions are
// associative and commutative, so blocks of one group may be reduced
// independently and combined in any order.
type Reduction string

// Built-in reductions
const (
	Sum   Reduction = "sum"
	Min   Reduction = "min"
	Max   Reduction = "max"
	Mean  Reduction = "mean"
	Count Reduction = "count"
)

func (r Reduction) valid() bool {
	switch r {
	case Sum, Min, Max, Mean, Count:
		return true
	}
	return false
}

// accum is a mergeable partial reduction over one block. One accumulator
// carries enough state for every named reduction, so blocks are reduced
// once regardless of which reduction was requested.
type accum struct {
	sum      float64
	min, max float64
	n        int64
}

func (a *accum) add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	a.sum += v
	a.n++
}

func (a *accum) merge(b accum) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	a.sum += b.sum
	a.n += b.n
}

// finalize turns a fully merged accumulator into the reduction's result.
// Empty inputs produce the reduction's identity where one exists (0 for sum
// and count) and fill otherwise.
func (r Reduction) finalize(a accum, fill float64) (float64, error) {
	switch r {
	case Sum:
		return a.sum, nil
	case Count:
		return float64(a.n), nil
	case Mean:
		if a.n == 0 {
			return fill, nil
		}
		return a.sum / float64(a.n), nil
	case Min:
		if a.n == 0 {
			return fill, nil
		}
		return a.min, nil
	case Max:
		if a.n == 0 {
			return fill, nil
		}
		return a.max, nil
	}
	return math.NaN(), fmt.Errorf("%w: %q", ErrUnknownReduction, string(r))
}
