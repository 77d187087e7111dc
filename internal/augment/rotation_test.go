package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

func TestRotationQuarterTurn(t *testing.T) {
	t.Parallel()

	tr := NewRandomRotation(RotationConfig{Degrees: 90, P: 1, Interp: geometry.InterpNearest})
	img := tensor.MustFromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, 1, 1, 3, 3)
	p := ParamMap{"batch_prob": {1}, "angle": {90}}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.Equal(t, []float32{
		3, 6, 9,
		2, 5, 8,
		1, 4, 7,
	}, out.Data())
}

func TestRotationParamsWithinRange(t *testing.T) {
	t.Parallel()

	tr := NewRandomRotation(RotationConfig{Degrees: 30, P: 0.5})
	p, err := tr.Params([]int{16, 3, 8, 8}, NewSampler(5))
	require.NoError(t, err)
	require.Len(t, p["angle"], 16)
	for _, a := range p["angle"] {
		assert.GreaterOrEqual(t, a, -30.0)
		assert.Less(t, a, 30.0)
	}
	for _, g := range p["batch_prob"] {
		assert.True(t, g == 0 || g == 1)
	}
}

func TestRotationMatrixRequiresAngle(t *testing.T) {
	t.Parallel()

	tr := NewRandomRotation(DefaultRotationConfig())
	_, err := tr.Matrix(ParamMap{"batch_prob": {1}}, [2]int{4, 4})
	assert.True(t, IsCode(err, ErrCodeMissingParameters))
}

func TestAffineTranslationOnly(t *testing.T) {
	t.Parallel()

	tr := NewRandomAffine(AffineConfig{Translate: [2]float64{0.5, 0}, P: 1, Interp: geometry.InterpBilinear})
	img := tensor.MustFromSlice([]float32{1, 2, 3}, 1, 1, 1, 3)
	p := ParamMap{
		"batch_prob": {1},
		"angle":      {0},
		"tx":         {1},
		"ty":         {0},
		"scale":      {1},
	}
	out, err := tr.Apply(img, p)
	require.NoError(t, err)

	want := []float32{0, 1, 2} // shifted right, zero fill at the border
	for i := range want {
		assert.InDelta(t, want[i], out.Data()[i], 1e-6)
	}
}

func TestAffineParamsResolvePixels(t *testing.T) {
	t.Parallel()

	tr := NewRandomAffine(AffineConfig{Degrees: 10, Translate: [2]float64{0.25, 0.5}, P: 1})
	p, err := tr.Params([]int{4, 3, 10, 8}, NewSampler(2))
	require.NoError(t, err)
	for _, tx := range p["tx"] {
		assert.LessOrEqual(t, tx, 2.0) // 0.25 * W=8
		assert.GreaterOrEqual(t, tx, -2.0)
	}
	for _, ty := range p["ty"] {
		assert.LessOrEqual(t, ty, 5.0) // 0.5 * H=10
		assert.GreaterOrEqual(t, ty, -5.0)
	}
	for _, sc := range p["scale"] {
		assert.Equal(t, 1.0, sc, "zero scale range disables scaling")
	}

	_, err = tr.Params([]int{4, 3}, NewSampler(2))
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
}

func TestAffineScaleAboutCenter(t *testing.T) {
	t.Parallel()

	tr := NewRandomAffine(AffineConfig{Scale: [2]float64{2, 2}, P: 1})
	p := ParamMap{
		"batch_prob": {1},
		"angle":      {0},
		"tx":         {0},
		"ty":         {0},
		"scale":      {2},
	}
	m, err := tr.Matrix(p, [2]int{5, 5})
	require.NoError(t, err)

	// Center (2, 2) stays fixed, (3, 2) moves out to (4, 2).
	pts := tensor.MustFromSlice([]float32{2, 2, 3, 2}, 1, 2, 2)
	out, err := m.ApplyPoints(pts)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.Data()[0], 1e-6)
	assert.InDelta(t, 2.0, out.Data()[1], 1e-6)
	assert.InDelta(t, 4.0, out.Data()[2], 1e-6)
	assert.InDelta(t, 2.0, out.Data()[3], 1e-6)
}
