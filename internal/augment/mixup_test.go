package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/tensor"
)

func TestMixUpBlendsPixelsAndLabels(t *testing.T) {
	t.Parallel()

	tr := NewRandomMixUp(DefaultMixUpConfig())
	assert.Equal(t, KindIntensity, tr.Kind())

	img := tensor.MustFromSlice([]float32{
		0, 0,
		1, 1,
	}, 2, 1, 1, 2)
	p := ParamMap{
		"batch_prob": {1, 0},
		"lambda":     {0.5, 0},
		"perm":       {1, 0},
	}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	// Element 0 moves halfway toward element 1; element 1 keeps itself.
	assert.InDelta(t, 0.5, out.Data()[0], 1e-6)
	assert.InDelta(t, 0.5, out.Data()[1], 1e-6)
	assert.Equal(t, float32(1), out.Data()[2])
	assert.Equal(t, float32(1), out.Data()[3])

	label := tensor.MustFromSlice([]float32{10, 20}, 2)
	mixed, err := tr.MixLabel(label, p)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, mixed.Shape())
	assert.Equal(t, []float32{
		10, 20, 0.5,
		20, 10, 0,
	}, mixed.Data())
}

func TestMixUpLabelShape(t *testing.T) {
	t.Parallel()

	tr := NewRandomMixUp(DefaultMixUpConfig())
	bad := tensor.New(2, 3)
	_, err := tr.MixLabel(bad, ParamMap{"lambda": {0, 0}, "perm": {0, 1}})
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
}

func TestMixUpRejectsBadPermutation(t *testing.T) {
	t.Parallel()

	tr := NewRandomMixUp(DefaultMixUpConfig())
	img := tensor.New(2, 1, 1, 1)
	p := ParamMap{"lambda": {0.5, 0.5}, "perm": {0, 5}}
	_, err := tr.Apply(img, p)
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
}

func TestMixUpGatedElementsKeepWeightZero(t *testing.T) {
	t.Parallel()

	tr := NewRandomMixUp(MixUpConfig{Lambda: [2]float64{0.4, 0.6}, P: 0})
	p, err := tr.Params([]int{4, 1, 2, 2}, NewSampler(3))
	require.NoError(t, err)
	for _, l := range p["lambda"] {
		assert.Equal(t, 0.0, l)
	}

	// Recorded permutation must be usable as batch indices.
	perm, err := permFromParams(p, 4)
	require.NoError(t, err)
	seen := make(map[int]bool, 4)
	for _, v := range perm {
		seen[v] = true
	}
	assert.Len(t, seen, 4)
}
