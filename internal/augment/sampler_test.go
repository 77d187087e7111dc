package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerDeterministic(t *testing.T) {
	t.Parallel()

	a := NewSampler(42)
	b := NewSampler(42)
	assert.Equal(t, a.Uniform(8, -3, 3, false), b.Uniform(8, -3, 3, false))
	assert.Equal(t, a.Bernoulli(8, 0.5, false), b.Bernoulli(8, 0.5, false))
	assert.Equal(t, a.Normal(8, 0, 1, false), b.Normal(8, 0, 1, false))
	assert.Equal(t, a.Perm(16), b.Perm(16))
}

func TestSamplerUniformBounds(t *testing.T) {
	t.Parallel()

	s := NewSampler(7)
	for _, v := range s.Uniform(1000, -2, 5, false) {
		assert.GreaterOrEqual(t, v, -2.0)
		assert.Less(t, v, 5.0)
	}

	// Degenerate range collapses to the single value.
	for _, v := range s.Uniform(4, 3, 3, false) {
		assert.Equal(t, 3.0, v)
	}
}

func TestSamplerSameOnBatch(t *testing.T) {
	t.Parallel()

	s := NewSampler(1)
	u := s.Uniform(6, 0, 10, true)
	for _, v := range u[1:] {
		assert.Equal(t, u[0], v)
	}
	n := s.Normal(6, 2, 0.5, true)
	for _, v := range n[1:] {
		assert.Equal(t, n[0], v)
	}
}

func TestSamplerBernoulliExtremes(t *testing.T) {
	t.Parallel()

	s := NewSampler(3)
	for _, v := range s.Bernoulli(64, 0, false) {
		assert.Equal(t, 0.0, v)
	}
	for _, v := range s.Bernoulli(64, 1, false) {
		assert.Equal(t, 1.0, v)
	}
	for _, v := range s.Bernoulli(64, 0.5, false) {
		assert.True(t, v == 0 || v == 1)
	}
}

func TestSamplerNormalZeroSigma(t *testing.T) {
	t.Parallel()

	s := NewSampler(9)
	for _, v := range s.Normal(5, 1.5, 0, false) {
		assert.Equal(t, 1.5, v)
	}
}

func TestSamplerPerm(t *testing.T) {
	t.Parallel()

	s := NewSampler(11)
	p := s.Perm(10)
	require.Len(t, p, 10)
	seen := make([]bool, 10)
	for _, v := range p {
		require.False(t, seen[v])
		seen[v] = true
	}
}
