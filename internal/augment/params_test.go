package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamMapRepeat(t *testing.T) {
	t.Parallel()

	p := ParamMap{
		"angle": {10, 20},
		"noise": {1, 2, 3, 4}, // two values per element
	}
	r, err := p.Repeat(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 10, 20, 20, 20}, r["angle"])
	assert.Equal(t, []float64{1, 2, 1, 2, 1, 2, 3, 4, 3, 4, 3, 4}, r["noise"])

	_, err = ParamMap{"bad": {1, 2, 3}}.Repeat(2, 2)
	assert.Error(t, err, "length not divisible by batch")
}

func TestParamMapAccessors(t *testing.T) {
	t.Parallel()

	p := ParamMap{"value": {7}, "angle": {1, 2, 3}, "batch_prob": {1, 0, 1}}

	v, err := p.Scalar("value")
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	_, err = p.Scalar("angle")
	assert.True(t, IsCode(err, ErrCodeMissingParameters))

	a, err := p.PerBatch("angle", 3)
	require.NoError(t, err)
	assert.Len(t, a, 3)
	_, err = p.PerBatch("angle", 4)
	assert.True(t, IsCode(err, ErrCodeShapeMismatch))
	_, err = p.PerBatch("missing", 3)
	assert.True(t, IsCode(err, ErrCodeMissingParameters))

	m, err := p.AppliedMask(3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, m)
}

func TestLedgerMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	led := Ledger{
		Shape: []int{2, 3, 5, 6},
		Items: []ParamItem{
			{Name: "RandomRotation_0", Data: ParamMap{"angle": {12.5, -3}, "batch_prob": {1, 1}}},
			{Name: "Sequential_1", Items: []ParamItem{
				{Name: "ColorJitter_0", Data: ParamMap{"brightness": {1.1, 0.9}}},
			}},
		},
	}
	b, err := led.Marshal()
	require.NoError(t, err)

	back, err := UnmarshalLedger(b)
	require.NoError(t, err)
	assert.Equal(t, led, back)
	assert.False(t, back.Empty())
	assert.True(t, Ledger{}.Empty())
}

func TestErrorCodes(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeArityMismatch, "got %d", 3)
	assert.True(t, IsCode(err, ErrCodeArityMismatch))
	assert.False(t, IsCode(err, ErrCodeConfiguration))
	assert.Equal(t, ErrCodeArityMismatch, CodeOf(err))
	assert.Contains(t, err.Error(), "ARITY_MISMATCH")

	cause := NewError(ErrCodeShapeMismatch, "inner")
	wrapped := WrapError(ErrCodeConfiguration, cause, "outer")
	assert.Equal(t, ErrCodeConfiguration, CodeOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "inner")

	assert.Equal(t, Code(""), CodeOf(assert.AnError))
}
