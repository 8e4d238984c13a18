package chunked

import "fmt"

// Field is a lazily evaluated one-dimensional array of float64 values
// partitioned into storage chunks. Implementations must be safe for
// concurrent reads; ReadChunk must not retain dst buffers across calls.
type Field interface {
	// Len returns the number of elements.
	Len() int64

	// Chunking returns the storage partition along the element axis.
	Chunking() Chunking

	// ReadChunk materializes storage chunk i.
	ReadChunk(i int) ([]float64, error)

	// Section returns a lazy restriction of the field to [lo, hi).
	// No data is read until the returned field is itself forced.
	Section(lo, hi int64) (Field, error)
}

// sliceField is an in-memory slice presented as a chunked field.
type sliceField struct {
	vals []float64
	ch   Chunking
}

// FromFloat64s wraps an in-memory slice as a Field with the given chunking.
func FromFloat64s(vals []float64, ch Chunking) (Field, error) {
	if int64(len(vals)) != ch.Len() {
		return nil, fmt.Errorf("slice length %d does not match chunking length %d", len(vals), ch.Len())
	}
	return &sliceField{vals: vals, ch: ch}, nil
}

func (f *sliceField) Len() int64         { return f.ch.Len() }
func (f *sliceField) Chunking() Chunking { return f.ch }

func (f *sliceField) ReadChunk(i int) ([]float64, error) {
	lo, hi := f.ch.Bounds(i)
	return f.vals[lo:hi], nil
}

func (f *sliceField) Section(lo, hi int64) (Field, error) {
	return newSection(f, lo, hi)
}

// computeField produces chunk contents on demand from a kernel function.
type computeField struct {
	ch Chunking
	fn func(lo, hi int64, dst []float64) error
}

// Compute returns a Field whose chunks are filled by fn. The kernel receives
// the global element range [lo, hi) of the requested chunk and a destination
// buffer of length hi-lo.
func Compute(ch Chunking, fn func(lo, hi int64, dst []float64) error) Field {
	return &computeField{ch: ch, fn: fn}
}

func (f *computeField) Len() int64         { return f.ch.Len() }
func (f *computeField) Chunking() Chunking { return f.ch }

func (f *computeField) ReadChunk(i int) ([]float64, error) {
	lo, hi := f.ch.Bounds(i)
	dst := make([]float64, hi-lo)
	if err := f.fn(lo, hi, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (f *computeField) Section(lo, hi int64) (Field, error) {
	return newSection(f, lo, hi)
}

// sectionField restricts a parent field to a global element range. Each of
// its chunks is a clip of exactly one parent chunk.
type sectionField struct {
	parent Field
	lo, hi int64
	ch     Chunking

	// parentChunk[i] is the parent chunk backing section chunk i;
	// clip[i] is the element range of that chunk in parent coordinates.
	parentChunk []int
	clip        [][2]int64
}

func newSection(parent Field, lo, hi int64) (Field, error) {
	if lo < 0 || hi > parent.Len() || lo > hi {
		return nil, fmt.Errorf("section [%d, %d) outside field of length %d", lo, hi, parent.Len())
	}
	pch := parent.Chunking()
	s := &sectionField{parent: parent, lo: lo, hi: hi, ch: pch.section(lo, hi)}
	for i := 0; i < pch.NumChunks(); i++ {
		clo, chi := pch.Bounds(i)
		if chi <= lo || clo >= hi {
			continue
		}
		if clo < lo {
			clo = lo
		}
		if chi > hi {
			chi = hi
		}
		s.parentChunk = append(s.parentChunk, i)
		s.clip = append(s.clip, [2]int64{clo, chi})
	}
	return s, nil
}

func (f *sectionField) Len() int64         { return f.hi - f.lo }
func (f *sectionField) Chunking() Chunking { return f.ch }

func (f *sectionField) ReadChunk(i int) ([]float64, error) {
	p := f.parentChunk[i]
	vals, err := f.parent.ReadChunk(p)
	if err != nil {
		return nil, err
	}
	plo, _ := f.parent.Chunking().Bounds(p)
	clo, chi := f.clip[i][0], f.clip[i][1]
	return vals[clo-plo : chi-plo], nil
}

func (f *sectionField) Section(lo, hi int64) (Field, error) {
	if lo < 0 || hi > f.Len() || lo > hi {
		return nil, fmt.Errorf("section [%d, %d) outside field of length %d", lo, hi, f.Len())
	}
	return newSection(f.parent, f.lo+lo, f.lo+hi)
}

// Int64Field is a lazily computed integer field. It satisfies Field by
// widening to float64, and additionally exposes exact integer reads for
// id-valued data such as group membership.
type Int64Field struct {
	ch Chunking
	fn func(lo, hi int64, dst []int64) error
}

// ComputeInt64 returns an Int64Field whose chunks are filled by fn.
func ComputeInt64(ch Chunking, fn func(lo, hi int64, dst []int64) error) *Int64Field {
	return &Int64Field{ch: ch, fn: fn}
}

func (f *Int64Field) Len() int64         { return f.ch.Len() }
func (f *Int64Field) Chunking() Chunking { return f.ch }

// ReadChunkInt64 materializes storage chunk i with exact integer values.
func (f *Int64Field) ReadChunkInt64(i int) ([]int64, error) {
	lo, hi := f.ch.Bounds(i)
	dst := make([]int64, hi-lo)
	if err := f.fn(lo, hi, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (f *Int64Field) ReadChunk(i int) ([]float64, error) {
	ints, err := f.ReadChunkInt64(i)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ints))
	for j, v := range ints {
		out[j] = float64(v)
	}
	return out, nil
}

func (f *Int64Field) Section(lo, hi int64) (Field, error) {
	return newSection(f, lo, hi)
}

// Int64s forces the whole field as integers.
func (f *Int64Field) Int64s() ([]int64, error) {
	out := make([]int64, f.Len())
	for i := 0; i < f.ch.NumChunks(); i++ {
		lo, hi := f.ch.Bounds(i)
		vals, err := f.ReadChunkInt64(i)
		if err != nil {
			return nil, err
		}
		copy(out[lo:hi], vals)
	}
	return out, nil
}
