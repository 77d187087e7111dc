package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSlice(t *testing.T) {
	d := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, 3, d.BatchStride())
	assert.Equal(t, []float32{4, 5, 6}, d.BatchSlice(1))

	// Writes through the slice alias the tensor.
	d.BatchSlice(0)[0] = 9
	assert.Equal(t, float32(9), d.At(0, 0))
}

func TestMapBatch(t *testing.T) {
	d := MustFromSlice([]float32{1, 1, 1, 1}, 2, 2)
	scale := []float32{2, 3}
	out := d.MapBatch(func(b int, v float32) float32 { return v * scale[b] })

	assert.Equal(t, []float32{2, 2, 3, 3}, out.Data())
	// Input untouched.
	assert.Equal(t, []float32{1, 1, 1, 1}, d.Data())
}

func TestPermuteBatch(t *testing.T) {
	d := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, 3, 2)

	out, err := d.PermuteBatch([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 1, 2, 3, 4}, out.Data())

	_, err = d.PermuteBatch([]int{0, 0, 1})
	assert.Error(t, err, "repeated index")
	_, err = d.PermuteBatch([]int{0, 1})
	assert.Error(t, err, "wrong length")
}

func TestLerp(t *testing.T) {
	a := MustFromSlice([]float32{0, 0, 10, 10}, 2, 2)
	b := MustFromSlice([]float32{4, 4, 20, 20}, 2, 2)

	out, err := Lerp(a, b, []float64{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2, 10, 10}, out.Data())

	_, err = Lerp(a, b, []float64{0.5})
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	d := MustFromSlice([]float32{-1, 0.5, 2}, 3)
	d.Clamp(0, 1)
	assert.Equal(t, []float32{0, 0.5, 1}, d.Data())
}
