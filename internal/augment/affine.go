package augment

import (
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// AffineConfig configures RandomAffine. Zero-valued ranges disable the
// corresponding component.
type AffineConfig struct {
	Degrees     float64         // Rotation drawn from [-Degrees, +Degrees]
	Translate   [2]float64      // Max translation as a fraction of width and height
	Scale       [2]float64      // Scale factor range; zero value means no scaling
	P           float64         // Per-element probability
	SameOnBatch bool            // Draw one parameter set for the whole batch
	Interp      geometry.Interp // Pixel sampling kernel
}

// DefaultAffineConfig returns a gentle jitter: small rotations, up to a
// tenth of the image in translation, no scaling.
func DefaultAffineConfig() AffineConfig {
	return AffineConfig{
		Degrees:   10,
		Translate: [2]float64{0.1, 0.1},
		P:         0.5,
		Interp:    geometry.InterpBilinear,
	}
}

// RandomAffine combines rotation, translation and scaling about the image
// center into a single resampling pass.
type RandomAffine struct {
	cfg AffineConfig
}

// NewRandomAffine builds the transform from cfg.
func NewRandomAffine(cfg AffineConfig) *RandomAffine {
	return &RandomAffine{cfg: cfg}
}

func (t *RandomAffine) Name() string { return "RandomAffine" }
func (t *RandomAffine) Kind() Kind   { return KindGeometric }

// Params stores translations in pixels, resolved against the sampled
// shape, so a recorded ledger replays identically regardless of where the
// fractions came from.
func (t *RandomAffine) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "RandomAffine samples against (B, C, H, W), got %v", shape)
	}
	b, h, w := shape[0], shape[2], shape[3]
	maxTx := t.cfg.Translate[0] * float64(w)
	maxTy := t.cfg.Translate[1] * float64(h)

	scale := make([]float64, b)
	if t.cfg.Scale == [2]float64{} {
		for i := range scale {
			scale[i] = 1
		}
	} else {
		scale = s.Uniform(b, t.cfg.Scale[0], t.cfg.Scale[1], t.cfg.SameOnBatch)
	}
	return ParamMap{
		"batch_prob": s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch),
		"angle":      s.Uniform(b, -t.cfg.Degrees, t.cfg.Degrees, t.cfg.SameOnBatch),
		"tx":         s.Uniform(b, -maxTx, maxTx, t.cfg.SameOnBatch),
		"ty":         s.Uniform(b, -maxTy, maxTy, t.cfg.SameOnBatch),
		"scale":      scale,
	}, nil
}

// Matrix composes translate ∘ rotate ∘ scale, rotation and scale both
// about the image center.
func (t *RandomAffine) Matrix(p ParamMap, hw [2]int) (*geometry.Affines, error) {
	angles, ok := p["angle"]
	if !ok {
		return nil, NewError(ErrCodeMissingParameters, "affine angle missing")
	}
	b := len(angles)
	tx, err := p.PerBatch("tx", b)
	if err != nil {
		return nil, err
	}
	ty, err := p.PerBatch("ty", b)
	if err != nil {
		return nil, err
	}
	scale, err := p.PerBatch("scale", b)
	if err != nil {
		return nil, err
	}
	applied, err := p.AppliedMask(b)
	if err != nil {
		return nil, err
	}

	cx := float64(hw[1]-1) / 2
	cy := float64(hw[0]-1) / 2
	m, err := geometry.RotationAbout(angles, cx, cy).Compose(geometry.ScaleAbout(scale, cx, cy))
	if err != nil {
		return nil, WrapError(ErrCodeInternal, err, "affine compose")
	}
	m, err = geometry.Translation(tx, ty).Compose(m)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, err, "affine compose")
	}
	return m.MaskIdentity(applied), nil
}

func (t *RandomAffine) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	return warpApply(t, img, p, t.cfg.Interp)
}

// Interp returns the configured pixel sampling kernel.
func (t *RandomAffine) Interp() geometry.Interp { return t.cfg.Interp }
