package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate-ml/augment/internal/augment"
)

func TestSequentialConstruction(t *testing.T) {
	t.Parallel()

	_, err := NewSequential(SequentialConfig{})
	assert.True(t, augment.IsCode(err, augment.ErrCodeConfiguration), "no children")

	jitter := augment.NewColorJitter(augment.DefaultColorJitterConfig())
	_, err = NewSequential(SequentialConfig{RandomApply: 3}, jitter)
	assert.True(t, augment.IsCode(err, augment.ErrCodeConfiguration), "random apply exceeds children")

	video, err := NewVideoSequential(jitter)
	require.NoError(t, err)
	_, err = NewSequential(SequentialConfig{}, video)
	assert.True(t, augment.IsCode(err, augment.ErrCodeConfiguration), "video stage below the top level")
}

func TestSequentialParamsTreeOrder(t *testing.T) {
	t.Parallel()

	seq, err := NewSequential(SequentialConfig{},
		augment.NewRandomHorizontalFlip(augment.DefaultFlipConfig()),
		augment.NewColorJitter(augment.DefaultColorJitterConfig()),
	)
	require.NoError(t, err)

	item, err := seq.ParamsTree([]int{2, 3, 4, 4}, augment.NewSampler(1))
	require.NoError(t, err)
	require.Len(t, item.Items, 2)
	assert.Equal(t, "RandomHorizontalFlip_0", item.Items[0].Name)
	assert.Equal(t, "ColorJitter_1", item.Items[1].Name)
	assert.Len(t, item.Items[0].Data["batch_prob"], 2)

	mod, err := seq.Submodule("ColorJitter_1")
	require.NoError(t, err)
	assert.Equal(t, "ColorJitter", mod.Name())

	_, err = seq.Submodule("ColorJitter_7")
	assert.True(t, augment.IsCode(err, augment.ErrCodeConfiguration))
}

func TestSequentialRandomSelection(t *testing.T) {
	t.Parallel()

	children := []augment.Module{
		augment.NewRandomHorizontalFlip(augment.DefaultFlipConfig()),
		augment.NewColorJitter(augment.DefaultColorJitterConfig()),
		augment.NewRandomGaussianNoise(augment.DefaultGaussianNoiseConfig()),
	}

	pick, err := NewSequential(SequentialConfig{RandomApply: 2}, children...)
	require.NoError(t, err)
	item, err := pick.ParamsTree([]int{1, 1, 2, 2}, augment.NewSampler(4))
	require.NoError(t, err)
	assert.Len(t, item.Items, 2)
	for _, sub := range item.Items {
		_, err := pick.Submodule(sub.Name)
		assert.NoError(t, err, "recorded name %q resolves", sub.Name)
	}

	shuf, err := NewSequential(SequentialConfig{RandomOrder: true}, children...)
	require.NoError(t, err)
	item, err = shuf.ParamsTree([]int{1, 1, 2, 2}, augment.NewSampler(4))
	require.NoError(t, err)
	require.Len(t, item.Items, 3)
	seen := make(map[string]bool, 3)
	for _, sub := range item.Items {
		seen[sub.Name] = true
	}
	assert.Len(t, seen, 3, "every child recorded exactly once")
}

func TestSequentialSubtreeQueries(t *testing.T) {
	t.Parallel()

	inner, err := NewSequential(SequentialConfig{},
		augment.NewColorJitter(augment.DefaultColorJitterConfig()),
		augment.NewRandomMixUp(augment.DefaultMixUpConfig()),
	)
	require.NoError(t, err)
	assert.True(t, inner.IntensityOnly())
	assert.True(t, inner.HasLabelMixer())

	outer, err := NewSequential(SequentialConfig{},
		augment.NewRandomHorizontalFlip(augment.DefaultFlipConfig()),
		inner,
	)
	require.NoError(t, err)
	assert.False(t, outer.IntensityOnly(), "flip moves coordinates")
	assert.True(t, outer.HasLabelMixer(), "mixer found through nesting")

	plain, err := NewSequential(SequentialConfig{},
		augment.NewRandomGaussianNoise(augment.DefaultGaussianNoiseConfig()),
	)
	require.NoError(t, err)
	assert.True(t, plain.IntensityOnly())
	assert.False(t, plain.HasLabelMixer())
}
