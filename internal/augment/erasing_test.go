package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/tensor"
)

func TestErasingBlanksRegion(t *testing.T) {
	t.Parallel()

	tr := NewRandomErasing(DefaultErasingConfig())
	assert.Equal(t, KindErasing, tr.Kind())

	img := tensor.Full(5, 1, 1, 3, 4)
	p := ParamMap{
		"batch_prob": {1},
		"x":          {1},
		"y":          {0},
		"w":          {2},
		"h":          {2},
		"value":      {0},
	}
	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.Equal(t, []float32{
		5, 0, 0, 5,
		5, 0, 0, 5,
		5, 5, 5, 5,
	}, out.Data())

	// The mask path fills with zero regardless of the configured value.
	mask := tensor.Full(7, 1, 1, 3, 4)
	mout, err := tr.EraseMask(mask, p)
	require.NoError(t, err)
	assert.Equal(t, float32(0), mout.Data()[1])
	assert.Equal(t, float32(7), mout.Data()[0])
}

func TestErasingGatedOff(t *testing.T) {
	t.Parallel()

	tr := NewRandomErasing(DefaultErasingConfig())
	img := tensor.Full(5, 1, 1, 3, 4)
	p := ParamMap{
		"batch_prob": {0},
		"x":          {1},
		"y":          {0},
		"w":          {2},
		"h":          {2},
		"value":      {0},
	}
	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(out, img))
}

func TestErasingSampledBoxesInBounds(t *testing.T) {
	t.Parallel()

	tr := NewRandomErasing(DefaultErasingConfig())
	p, err := tr.Params([]int{32, 3, 7, 9}, NewSampler(6))
	require.NoError(t, err)
	for i := 0; i < 32; i++ {
		x, y, w, h := p["x"][i], p["y"][i], p["w"][i], p["h"][i]
		assert.GreaterOrEqual(t, w, 1.0)
		assert.GreaterOrEqual(t, h, 1.0)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, x+w, 9.0)
		assert.LessOrEqual(t, y+h, 7.0)
	}
}

func TestNoiseAddsRecordedField(t *testing.T) {
	t.Parallel()

	tr := NewRandomGaussianNoise(DefaultGaussianNoiseConfig())
	assert.Equal(t, KindIntensity, tr.Kind())

	img := tensor.Full(1, 1, 1, 1, 3)
	p := ParamMap{
		"batch_prob": {1},
		"noise":      {0.5, -0.25, 0},
	}
	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, out.Data()[0], 1e-6)
	assert.InDelta(t, 0.75, out.Data()[1], 1e-6)
	assert.InDelta(t, 1.0, out.Data()[2], 1e-6)
}

func TestNoiseSameOnBatchSharesField(t *testing.T) {
	t.Parallel()

	tr := NewRandomGaussianNoise(GaussianNoiseConfig{Std: 1, P: 1, SameOnBatch: true})
	p, err := tr.Params([]int{2, 1, 2, 2}, NewSampler(8))
	require.NoError(t, err)
	require.Len(t, p["noise"], 8)
	assert.Equal(t, p["noise"][:4], p["noise"][4:])
}

func TestNoiseFieldLengthChecked(t *testing.T) {
	t.Parallel()

	tr := NewRandomGaussianNoise(DefaultGaussianNoiseConfig())
	img := tensor.Full(1, 1, 1, 2, 2)
	_, err := tr.Apply(img, ParamMap{"batch_prob": {1}, "noise": {0.5}})
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
}
