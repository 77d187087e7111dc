package augment

import (
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// FlipConfig configures the random flip transforms.
type FlipConfig struct {
	P           float64         // Per-element probability of flipping
	SameOnBatch bool            // Draw one decision for the whole batch
	Interp      geometry.Interp // Pixel sampling kernel
}

// DefaultFlipConfig returns the usual coin-flip setup.
func DefaultFlipConfig() FlipConfig {
	return FlipConfig{P: 0.5, Interp: geometry.InterpBilinear}
}

// RandomHorizontalFlip mirrors batch elements about the vertical
// centerline with probability P.
type RandomHorizontalFlip struct {
	cfg FlipConfig
}

// NewRandomHorizontalFlip builds the transform from cfg.
func NewRandomHorizontalFlip(cfg FlipConfig) *RandomHorizontalFlip {
	return &RandomHorizontalFlip{cfg: cfg}
}

func (t *RandomHorizontalFlip) Name() string { return "RandomHorizontalFlip" }
func (t *RandomHorizontalFlip) Kind() Kind   { return KindGeometric }

func (t *RandomHorizontalFlip) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) == 0 {
		return nil, NewError(ErrCodeShapeMismatch, "empty shape")
	}
	return ParamMap{
		"batch_prob": s.Bernoulli(shape[0], t.cfg.P, t.cfg.SameOnBatch),
	}, nil
}

func (t *RandomHorizontalFlip) Matrix(p ParamMap, hw [2]int) (*geometry.Affines, error) {
	applied, err := p.AppliedMask(len(p["batch_prob"]))
	if err != nil {
		return nil, err
	}
	return geometry.FlipHorizontal(len(applied), hw[1]).MaskIdentity(applied), nil
}

func (t *RandomHorizontalFlip) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	return warpApply(t, img, p, t.cfg.Interp)
}

// RandomVerticalFlip mirrors batch elements about the horizontal
// centerline with probability P.
type RandomVerticalFlip struct {
	cfg FlipConfig
}

// NewRandomVerticalFlip builds the transform from cfg.
func NewRandomVerticalFlip(cfg FlipConfig) *RandomVerticalFlip {
	return &RandomVerticalFlip{cfg: cfg}
}

func (t *RandomVerticalFlip) Name() string { return "RandomVerticalFlip" }
func (t *RandomVerticalFlip) Kind() Kind   { return KindGeometric }

func (t *RandomVerticalFlip) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) == 0 {
		return nil, NewError(ErrCodeShapeMismatch, "empty shape")
	}
	return ParamMap{
		"batch_prob": s.Bernoulli(shape[0], t.cfg.P, t.cfg.SameOnBatch),
	}, nil
}

func (t *RandomVerticalFlip) Matrix(p ParamMap, hw [2]int) (*geometry.Affines, error) {
	applied, err := p.AppliedMask(len(p["batch_prob"]))
	if err != nil {
		return nil, err
	}
	return geometry.FlipVertical(len(applied), hw[0]).MaskIdentity(applied), nil
}

func (t *RandomVerticalFlip) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	return warpApply(t, img, p, t.cfg.Interp)
}

// warpApply is the shared pixel path of every geometric transform: build
// the batch matrices for the image's size and resample.
func warpApply(g Geometric, img *tensor.Dense, p ParamMap, ip geometry.Interp) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "%s wants a (B, C, H, W) batch, got shape %v", g.Name(), img.Shape())
	}
	m, err := g.Matrix(p, [2]int{img.Dim(2), img.Dim(3)})
	if err != nil {
		return nil, err
	}
	out, err := geometry.WarpAffine(img, m, ip)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, err, "%s warp", g.Name())
	}
	return out, nil
}

// Interp returns the configured pixel sampling kernel.
func (t *RandomHorizontalFlip) Interp() geometry.Interp { return t.cfg.Interp }

// Interp returns the configured pixel sampling kernel.
func (t *RandomVerticalFlip) Interp() geometry.Interp { return t.cfg.Interp }
