package tensor

import "fmt"

// Batch returns the leading dimension, the batch size by convention.
func (t *Dense) Batch() int { return t.shape[0] }

// BatchStride returns the number of elements in one batch element.
func (t *Dense) BatchStride() int {
	if t.shape[0] == 0 {
		return 0
	}
	return len(t.data) / t.shape[0]
}

// BatchSlice returns the backing slice of batch element i. The slice aliases
// the tensor; writes are visible to all views of the same data.
func (t *Dense) BatchSlice(i int) []float32 {
	s := t.BatchStride()
	return t.data[i*s : (i+1)*s]
}

// Map returns a new tensor with fn applied to every element.
func (t *Dense) Map(fn func(float32) float32) *Dense {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}
	return out
}

// MapBatch returns a new tensor with fn applied per batch element; fn
// receives the batch index so per-element parameters can be looked up once.
func (t *Dense) MapBatch(fn func(b int, v float32) float32) *Dense {
	out := t.Clone()
	stride := out.BatchStride()
	for b := 0; b < out.shape[0]; b++ {
		s := out.data[b*stride : (b+1)*stride]
		for i, v := range s {
			s[i] = fn(b, v)
		}
	}
	return out
}

// PermuteBatch returns a new tensor whose batch elements are reordered so
// that out[i] = t[perm[i]]. Errors when perm is not a permutation of the
// batch indices.
func (t *Dense) PermuteBatch(perm []int) (*Dense, error) {
	b := t.shape[0]
	if len(perm) != b {
		return nil, fmt.Errorf("tensor: permutation length %d does not match batch %d", len(perm), b)
	}
	seen := make([]bool, b)
	for _, p := range perm {
		if p < 0 || p >= b || seen[p] {
			return nil, fmt.Errorf("tensor: invalid batch permutation %v", perm)
		}
		seen[p] = true
	}
	out := New(t.shape...)
	stride := t.BatchStride()
	for i, p := range perm {
		copy(out.data[i*stride:(i+1)*stride], t.data[p*stride:(p+1)*stride])
	}
	return out, nil
}

// Lerp blends a towards b per batch element: out = (1-w[i])*a + w[i]*b.
// Shapes must match and len(w) must equal the batch size.
func Lerp(a, b *Dense, w []float64) (*Dense, error) {
	if !SameShape(a, b) {
		return nil, fmt.Errorf("tensor: lerp shape mismatch %v vs %v", a.shape, b.shape)
	}
	if len(w) != a.shape[0] {
		return nil, fmt.Errorf("tensor: %d weights for batch %d", len(w), a.shape[0])
	}
	out := New(a.shape...)
	stride := a.BatchStride()
	for i := 0; i < a.shape[0]; i++ {
		wi := float32(w[i])
		ao := a.data[i*stride : (i+1)*stride]
		bo := b.data[i*stride : (i+1)*stride]
		oo := out.data[i*stride : (i+1)*stride]
		for j := range oo {
			oo[j] = (1-wi)*ao[j] + wi*bo[j]
		}
	}
	return out, nil
}

// Clamp limits every element to [lo, hi] in place and returns t.
func (t *Dense) Clamp(lo, hi float32) *Dense {
	for i, v := range t.data {
		if v < lo {
			t.data[i] = lo
		} else if v > hi {
			t.data[i] = hi
		}
	}
	return t
}
