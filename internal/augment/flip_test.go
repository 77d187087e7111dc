package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

func TestHorizontalFlipAlwaysOn(t *testing.T) {
	t.Parallel()

	tr := NewRandomHorizontalFlip(FlipConfig{P: 1, Interp: geometry.InterpNearest})
	assert.Equal(t, KindGeometric, tr.Kind())

	img := tensor.MustFromSlice([]float32{1, 2, 3, 4}, 1, 1, 1, 4)
	p, err := tr.Params(img.Shape(), NewSampler(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, p["batch_prob"])

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 3, 2, 1}, out.Data())
}

func TestHorizontalFlipGatedOff(t *testing.T) {
	t.Parallel()

	tr := NewRandomHorizontalFlip(FlipConfig{P: 0})
	img := tensor.MustFromSlice([]float32{1, 2, 3, 4}, 1, 1, 1, 4)
	p, err := tr.Params(img.Shape(), NewSampler(1))
	require.NoError(t, err)

	m, err := tr.Matrix(p, [2]int{1, 4})
	require.NoError(t, err)
	assert.True(t, m.IsIdentity())

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(out, img))
}

func TestFlipPerElementGate(t *testing.T) {
	t.Parallel()

	tr := NewRandomVerticalFlip(DefaultFlipConfig())
	img := tensor.MustFromSlice([]float32{
		1, 2, // first element, column layout (H=2, W=1)
		3, 4, // second element
	}, 2, 1, 2, 1)
	p := ParamMap{"batch_prob": {1, 0}}

	out, err := tr.Apply(img, p)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1, 3, 4}, out.Data())
}

func TestFlipRejectsBadRank(t *testing.T) {
	t.Parallel()

	tr := NewRandomHorizontalFlip(DefaultFlipConfig())
	_, err := tr.Apply(tensor.New(2, 3), ParamMap{"batch_prob": {1, 1}})
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))

	_, err = tr.Params(nil, NewSampler(1))
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
}
