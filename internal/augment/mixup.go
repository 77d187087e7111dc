package augment

import (
	"github.com/tessellate-ml/augment/internal/tensor"
)

// MixUpConfig configures RandomMixUp.
type MixUpConfig struct {
	Lambda      [2]float64 // Mixing weight range; zero value means [0, 1]
	P           float64    // Per-element probability
	SameOnBatch bool       // Draw one weight for the whole batch
}

// DefaultMixUpConfig mixes every element with a uniformly drawn weight.
func DefaultMixUpConfig() MixUpConfig {
	return MixUpConfig{Lambda: [2]float64{0, 1}, P: 1}
}

// RandomMixUp blends each batch element with another element drawn by a
// random permutation. Pixels interpolate; labels widen from (B,) to
// (B, 3) rows of [own label, partner label, weight]. Coordinates never
// move, so it dispatches as an intensity change.
type RandomMixUp struct {
	cfg MixUpConfig
}

// NewRandomMixUp builds the transform from cfg.
func NewRandomMixUp(cfg MixUpConfig) *RandomMixUp {
	return &RandomMixUp{cfg: cfg}
}

func (t *RandomMixUp) Name() string { return "RandomMixUp" }
func (t *RandomMixUp) Kind() Kind   { return KindIntensity }

func (t *RandomMixUp) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) == 0 {
		return nil, NewError(ErrCodeShapeMismatch, "empty shape")
	}
	b := shape[0]
	lo, hi := t.cfg.Lambda[0], t.cfg.Lambda[1]
	if lo == 0 && hi == 0 {
		lo, hi = 0, 1
	}
	gate := s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch)
	lambda := s.Uniform(b, lo, hi, t.cfg.SameOnBatch)
	// A gated-off element keeps itself: weight zero.
	for i := range lambda {
		if gate[i] == 0 {
			lambda[i] = 0
		}
	}
	permInts := s.Perm(b)
	perm := make([]float64, b)
	for i, v := range permInts {
		perm[i] = float64(v)
	}
	return ParamMap{
		"batch_prob": gate,
		"lambda":     lambda,
		"perm":       perm,
	}, nil
}

func (t *RandomMixUp) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	b := img.Dim(0)
	lambda, err := p.PerBatch("lambda", b)
	if err != nil {
		return nil, err
	}
	perm, err := permFromParams(p, b)
	if err != nil {
		return nil, err
	}
	partner, err := img.PermuteBatch(perm)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, err, "mixup permute")
	}
	out, err := tensor.Lerp(img, partner, lambda)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, err, "mixup blend")
	}
	return out, nil
}

// MixLabel widens a (B,) label batch to (B, 3): the element's own label,
// its mixing partner's, and the weight the pixels were blended with.
func (t *RandomMixUp) MixLabel(label *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	if label.Dims() != 1 {
		return nil, NewError(ErrCodeShapeMismatch, "mixup labels must be (B,), got shape %v", label.Shape())
	}
	b := label.Dim(0)
	lambda, err := p.PerBatch("lambda", b)
	if err != nil {
		return nil, err
	}
	perm, err := permFromParams(p, b)
	if err != nil {
		return nil, err
	}
	out := tensor.New(b, 3)
	src := label.Data()
	dst := out.Data()
	for i := 0; i < b; i++ {
		dst[i*3+0] = src[i]
		dst[i*3+1] = src[perm[i]]
		dst[i*3+2] = float32(lambda[i])
	}
	return out, nil
}

func permFromParams(p ParamMap, batch int) ([]int, error) {
	vals, err := p.PerBatch("perm", batch)
	if err != nil {
		return nil, err
	}
	perm := make([]int, batch)
	for i, v := range vals {
		perm[i] = int(v)
		if perm[i] < 0 || perm[i] >= batch {
			return nil, NewError(ErrCodeShapeMismatch, "permutation entry %v out of range for batch %d", v, batch)
		}
	}
	return perm, nil
}
