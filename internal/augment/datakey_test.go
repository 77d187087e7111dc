package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessellate-ml/augment/internal/geometry"
)

func TestDataKeyNames(t *testing.T) {
	t.Parallel()

	for _, k := range []DataKey{KeyInput, KeyMask, KeyBBox, KeyBBoxXYXY, KeyBBoxXYWH, KeyKeypoints} {
		assert.True(t, k.Valid())
		parsed, err := ParseDataKey(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseDataKey("depth")
	assert.True(t, IsCode(err, ErrCodeUnsupportedModality))
	assert.False(t, DataKey(99).Valid())
}

func TestDataKeyBoxModes(t *testing.T) {
	t.Parallel()

	mode, ok := KeyBBox.BoxMode()
	assert.True(t, ok)
	assert.Equal(t, geometry.ModeVertices, mode)

	mode, ok = KeyBBoxXYXY.BoxMode()
	assert.True(t, ok)
	assert.Equal(t, geometry.ModeXYXY, mode)

	mode, ok = KeyBBoxXYWH.BoxMode()
	assert.True(t, ok)
	assert.Equal(t, geometry.ModeXYWH, mode)

	_, ok = KeyMask.BoxMode()
	assert.False(t, ok)

	assert.True(t, KeyBBoxXYWH.IsBox())
	assert.False(t, KeyKeypoints.IsBox())
}
