// Package tensor provides the fixed-shape float32 arrays exchanged between
// the preprocessing pipeline, the enhancement network, and the blob archives,
// together with NumPy-compatible on-disk codecs.
package tensor

import (
	"fmt"
	"math"
)

// Tensor is an N-dimensional float32 array in row-major (C) order.
// The leading dimension is the sample axis everywhere in the pipeline.
type Tensor struct {
	shape []int
	data  []float32
}

// New allocates a zero-filled tensor with the given shape.
func New(shape ...int) (*Tensor, error) {
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: cloneShape(shape), data: make([]float32, size)}, nil
}

// FromData wraps an existing flat slice. The slice is not copied; the caller
// hands over ownership.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (want %d)", len(data), shape, size)
	}
	return &Tensor{shape: cloneShape(shape), data: data}, nil
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int {
	return cloneShape(t.shape)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the size of the leading (sample) axis. Scalars report zero.
func (t *Tensor) Len() int {
	if len(t.shape) == 0 {
		return 0
	}
	return t.shape[0]
}

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data exposes the flat backing slice in row-major order.
func (t *Tensor) Data() []float32 { return t.data }

// RowSize returns the number of elements per entry along the sample axis.
func (t *Tensor) RowSize() int {
	if len(t.shape) == 0 || t.shape[0] == 0 {
		return 0
	}
	return len(t.data) / t.shape[0]
}

// Row returns the flat view of entry i along the sample axis.
func (t *Tensor) Row(i int) []float32 {
	rs := t.RowSize()
	return t.data[i*rs : (i+1)*rs]
}

// At returns the element at the given multi-index.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.offset(indices)]
}

// Set assigns the element at the given multi-index.
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match shape rank %d", len(indices), len(t.shape)))
	}
	off := 0
	for d, idx := range indices {
		if idx < 0 || idx >= t.shape[d] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", idx, d, t.shape[d]))
		}
		off = off*t.shape[d] + idx
	}
	return off
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: cloneShape(t.shape), data: data}
}

// Take gathers entries along the sample axis in the given order into a new
// tensor. Every index must be valid; Take is the primitive behind the shared
// permutation that keeps parallel arrays aligned.
func (t *Tensor) Take(indices []int) (*Tensor, error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("tensor: cannot take rows from a scalar")
	}
	rs := t.RowSize()
	out := make([]float32, 0, len(indices)*rs)
	for _, idx := range indices {
		if idx < 0 || idx >= t.shape[0] {
			return nil, fmt.Errorf("tensor: take index %d out of range (%d rows)", idx, t.shape[0])
		}
		out = append(out, t.Row(idx)...)
	}
	shape := cloneShape(t.shape)
	shape[0] = len(indices)
	return FromData(out, shape...)
}

// Truncate returns a copy holding only the first n entries of the sample axis.
func (t *Tensor) Truncate(n int) (*Tensor, error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("tensor: cannot truncate a scalar")
	}
	if n < 0 || n > t.shape[0] {
		return nil, fmt.Errorf("tensor: truncate length %d out of range (%d rows)", n, t.shape[0])
	}
	rs := t.RowSize()
	data := make([]float32, n*rs)
	copy(data, t.data[:n*rs])
	shape := cloneShape(t.shape)
	shape[0] = n
	return FromData(data, shape...)
}

// Concat joins tensors along the sample axis. All trailing dimensions must
// agree; the order of the inputs is preserved.
func Concat(tensors []*Tensor) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("tensor: concat of zero tensors")
	}
	first := tensors[0]
	total := 0
	for i, t := range tensors {
		if t.Rank() != first.Rank() {
			return nil, fmt.Errorf("tensor: concat rank mismatch at input %d: %d vs %d", i, t.Rank(), first.Rank())
		}
		for d := 1; d < first.Rank(); d++ {
			if t.shape[d] != first.shape[d] {
				return nil, fmt.Errorf("tensor: concat shape mismatch at input %d axis %d: %d vs %d", i, d, t.shape[d], first.shape[d])
			}
		}
		total += t.shape[0]
	}
	data := make([]float32, 0, total*first.RowSize())
	for _, t := range tensors {
		data = append(data, t.data...)
	}
	shape := cloneShape(first.shape)
	shape[0] = total
	return FromData(data, shape...)
}

// Equal reports whether two tensors share shape and exact element values.
func (t *Tensor) Equal(o *Tensor) bool {
	if t.Rank() != o.Rank() {
		return false
	}
	for d := range t.shape {
		if t.shape[d] != o.shape[d] {
			return false
		}
	}
	for i := range t.data {
		if t.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func sizeOf(shape []int) (int, error) {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("tensor: negative dimension %d in shape %v", dim, shape)
		}
		if dim > 0 && size > math.MaxInt/dim {
			return 0, fmt.Errorf("tensor: shape %v overflows", shape)
		}
		size *= dim
	}
	return size, nil
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
