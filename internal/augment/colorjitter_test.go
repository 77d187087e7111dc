package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/tensor"
)

func neutralJitterParams(b int) ParamMap {
	ones := make([]float64, b)
	gate := make([]float64, b)
	for i := range ones {
		ones[i] = 1
		gate[i] = 1
	}
	return ParamMap{"batch_prob": gate, "brightness": ones, "contrast": ones, "saturation": ones}
}

func TestColorJitterBrightness(t *testing.T) {
	t.Parallel()

	tr := NewColorJitter(DefaultColorJitterConfig())
	assert.Equal(t, KindIntensity, tr.Kind())

	img := tensor.Full(0.25, 1, 1, 2, 2)
	p := neutralJitterParams(1)
	p["brightness"] = []float64{2}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestColorJitterClampsToUnit(t *testing.T) {
	t.Parallel()

	tr := NewColorJitter(DefaultColorJitterConfig())
	img := tensor.Full(0.8, 1, 1, 1, 2)
	p := neutralJitterParams(1)
	p["brightness"] = []float64{2}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.Equal(t, float32(1), v)
	}
}

func TestColorJitterContrastTowardsMean(t *testing.T) {
	t.Parallel()

	tr := NewColorJitter(DefaultColorJitterConfig())
	// Single channel, values 0 and 1, mean 0.5. Contrast 0 pulls both to it.
	img := tensor.MustFromSlice([]float32{0, 1}, 1, 1, 1, 2)
	p := neutralJitterParams(1)
	p["contrast"] = []float64{0}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Data()[0], 1e-6)
	assert.InDelta(t, 0.5, out.Data()[1], 1e-6)
}

func TestColorJitterSaturationToGray(t *testing.T) {
	t.Parallel()

	tr := NewColorJitter(DefaultColorJitterConfig())
	// One red pixel. Saturation 0 grays it out with BT.601 weights.
	img := tensor.MustFromSlice([]float32{1, 0, 0}, 1, 3, 1, 1)
	p := neutralJitterParams(1)
	p["saturation"] = []float64{0}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.InDelta(t, 0.299, v, 1e-6)
	}
}

func TestColorJitterGateAndParams(t *testing.T) {
	t.Parallel()

	tr := NewColorJitter(ColorJitterConfig{Brightness: 0.5, P: 1})
	img := tensor.Full(0.5, 2, 1, 1, 2)
	p := neutralJitterParams(2)
	p["brightness"] = []float64{2, 2}
	p["batch_prob"] = []float64{0, 1}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), out.Data()[0], "gated-off element untouched")
	assert.Equal(t, float32(1), out.Data()[2])

	sampled, err := tr.Params([]int{3, 1, 2, 2}, NewSampler(4))
	require.NoError(t, err)
	for _, v := range sampled["contrast"] {
		assert.Equal(t, 1.0, v, "zero contrast amount stays neutral")
	}
	for _, v := range sampled["brightness"] {
		assert.GreaterOrEqual(t, v, 0.5)
		assert.Less(t, v, 1.5)
	}
}
