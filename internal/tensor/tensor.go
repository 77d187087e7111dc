// Package tensor provides a compact row-major float32 tensor used by the
// augmentation engine.
//
// Dense is deliberately small: contiguous storage, explicit shapes, and the
// handful of batch-structure operations the dispatch layer needs (leading
// dimension folding, rank autofill). Numeric kernels live with their
// transforms; this package only owns layout.
package tensor

import (
	"fmt"
	"strings"
)

// Dense is a contiguous, row-major float32 tensor.
type Dense struct {
	shape []int
	data  []float32
}

// New returns a zero-filled tensor with the given shape.
// Panics if any dimension is negative or the shape is empty.
func New(shape ...int) *Dense {
	n := checkShape(shape)
	return &Dense{shape: cloneInts(shape), data: make([]float32, n)}
}

// Full returns a tensor with every element set to v.
func Full(v float32, shape ...int) *Dense {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// FromSlice wraps data in a tensor of the given shape. The slice is used
// directly, not copied. Returns an error when the element count does not
// match the shape.
func FromSlice(data []float32, shape ...int) (*Dense, error) {
	n := checkShape(shape)
	if len(data) != n {
		return nil, fmt.Errorf("tensor: %d elements do not fit shape %v (need %d)", len(data), shape, n)
	}
	return &Dense{shape: cloneInts(shape), data: data}, nil
}

// MustFromSlice is FromSlice for fixture construction; panics on mismatch.
func MustFromSlice(data []float32, shape ...int) *Dense {
	t, err := FromSlice(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

func checkShape(shape []int) int {
	if len(shape) == 0 {
		panic("tensor: empty shape")
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("tensor: negative dimension in shape %v", shape))
		}
		n *= d
	}
	return n
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

// Shape returns a copy of the tensor's shape.
func (t *Dense) Shape() []int { return cloneInts(t.shape) }

// Dims returns the number of dimensions.
func (t *Dense) Dims() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Dense) Dim(i int) int { return t.shape[i] }

// Size returns the total number of elements.
func (t *Dense) Size() int { return len(t.data) }

// Data returns the backing slice. Mutating it mutates the tensor.
func (t *Dense) Data() []float32 { return t.data }

// Strides returns the row-major stride of each dimension.
func (t *Dense) Strides() []int {
	strides := make([]int, len(t.shape))
	acc := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= t.shape[i]
	}
	return strides
}

// At returns the element at the given multi-index. Panics on rank or bounds
// mismatch; index arithmetic is a programmer error, not an input error.
func (t *Dense) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set writes v at the given multi-index.
func (t *Dense) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Dense) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for %d-dim tensor", len(idx), len(t.shape)))
	}
	off := 0
	acc := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		d := idx[i]
		if d < 0 || d >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off += d * acc
		acc *= t.shape[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Dense{shape: cloneInts(t.shape), data: data}
}

// Reshape returns a tensor sharing t's data with a new shape of equal size.
func (t *Dense) Reshape(shape ...int) (*Dense, error) {
	n := checkShape(shape)
	if n != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, n)
	}
	return &Dense{shape: cloneInts(shape), data: t.data}, nil
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Dense) bool {
	if a.Dims() != b.Dims() {
		return false
	}
	for i, d := range a.shape {
		if b.shape[i] != d {
			return false
		}
	}
	return true
}

// Equal reports exact (bitwise) equality of shape and every element.
// Used by the replay-determinism guarantees, so no tolerance is applied.
func Equal(a, b *Dense) bool {
	if !SameShape(a, b) {
		return false
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return false
		}
	}
	return true
}

// EqualApprox reports shape equality and element equality within tol.
func EqualApprox(a, b *Dense, tol float64) bool {
	if !SameShape(a, b) {
		return false
	}
	for i, v := range a.data {
		d := float64(v) - float64(b.data[i])
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

// FoldLeading merges the two leading dimensions: (B, T, rest...) becomes
// (B*T, rest...). The returned tensor shares t's data. Errors when t has
// fewer than two dimensions.
func (t *Dense) FoldLeading() (*Dense, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("tensor: cannot fold leading dims of shape %v", t.shape)
	}
	shape := make([]int, 0, len(t.shape)-1)
	shape = append(shape, t.shape[0]*t.shape[1])
	shape = append(shape, t.shape[2:]...)
	return &Dense{shape: shape, data: t.data}, nil
}

// UnfoldLeading splits the leading dimension into (B, steps): the inverse of
// FoldLeading. Errors when the leading dimension is not divisible by steps.
func (t *Dense) UnfoldLeading(steps int) (*Dense, error) {
	if len(t.shape) < 1 || steps <= 0 || t.shape[0]%steps != 0 {
		return nil, fmt.Errorf("tensor: cannot unfold leading dim of shape %v into %d steps", t.shape, steps)
	}
	shape := make([]int, 0, len(t.shape)+1)
	shape = append(shape, t.shape[0]/steps, steps)
	shape = append(shape, t.shape[1:]...)
	return &Dense{shape: shape, data: t.data}, nil
}

// Autofill prepends size-1 dimensions until the tensor has maxDims
// dimensions. Errors when the rank falls outside [minDims, maxDims].
// It returns the padded view and the original shape so callers can restore
// the input rank on exit.
func (t *Dense) Autofill(minDims, maxDims int) (*Dense, []int, error) {
	nd := len(t.shape)
	if nd < minDims || nd > maxDims {
		return nil, nil, fmt.Errorf("tensor: rank %d outside expected range [%d, %d]", nd, minDims, maxDims)
	}
	orig := cloneInts(t.shape)
	shape := make([]int, maxDims)
	pad := maxDims - nd
	for i := 0; i < pad; i++ {
		shape[i] = 1
	}
	copy(shape[pad:], t.shape)
	return &Dense{shape: shape, data: t.data}, orig, nil
}

// String renders the shape and, for small tensors, the data. Debug aid only.
func (t *Dense) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dense%v", t.shape)
	if len(t.data) <= 32 {
		fmt.Fprintf(&b, "%v", t.data)
	}
	return b.String()
}
