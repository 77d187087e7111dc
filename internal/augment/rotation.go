package augment

import (
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// RotationConfig configures RandomRotation.
type RotationConfig struct {
	Degrees     float64         // Angles are drawn uniformly from [-Degrees, +Degrees]
	P           float64         // Per-element probability of rotating
	SameOnBatch bool            // Draw one angle for the whole batch
	Interp      geometry.Interp // Pixel sampling kernel
}

// DefaultRotationConfig returns a mild rotation setup.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{Degrees: 15, P: 0.5, Interp: geometry.InterpBilinear}
}

// RandomRotation rotates batch elements about the image center by a
// uniformly sampled angle.
type RandomRotation struct {
	cfg RotationConfig
}

// NewRandomRotation builds the transform from cfg.
func NewRandomRotation(cfg RotationConfig) *RandomRotation {
	return &RandomRotation{cfg: cfg}
}

func (t *RandomRotation) Name() string { return "RandomRotation" }
func (t *RandomRotation) Kind() Kind   { return KindGeometric }

func (t *RandomRotation) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) == 0 {
		return nil, NewError(ErrCodeShapeMismatch, "empty shape")
	}
	b := shape[0]
	return ParamMap{
		"batch_prob": s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch),
		"angle":      s.Uniform(b, -t.cfg.Degrees, t.cfg.Degrees, t.cfg.SameOnBatch),
	}, nil
}

func (t *RandomRotation) Matrix(p ParamMap, hw [2]int) (*geometry.Affines, error) {
	angles, ok := p["angle"]
	if !ok {
		return nil, NewError(ErrCodeMissingParameters, "rotation angle missing")
	}
	applied, err := p.AppliedMask(len(angles))
	if err != nil {
		return nil, err
	}
	cx := float64(hw[1]-1) / 2
	cy := float64(hw[0]-1) / 2
	return geometry.RotationAbout(angles, cx, cy).MaskIdentity(applied), nil
}

func (t *RandomRotation) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	return warpApply(t, img, p, t.cfg.Interp)
}

// Interp returns the configured pixel sampling kernel.
func (t *RandomRotation) Interp() geometry.Interp { return t.cfg.Interp }
