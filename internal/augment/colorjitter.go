package augment

import (
	"github.com/tessellate-ml/augment/internal/tensor"
)

// Luminance weights for grayscale conversion (ITU-R BT.601).
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ColorJitterConfig configures ColorJitter. Each component samples its
// factor from [max(0, 1-X), 1+X]; a zero component is left alone.
type ColorJitterConfig struct {
	Brightness  float64 // Brightness jitter amount
	Contrast    float64 // Contrast jitter amount
	Saturation  float64 // Saturation jitter amount, 3-channel batches only
	P           float64 // Per-element probability
	SameOnBatch bool    // Draw one factor set for the whole batch
}

// DefaultColorJitterConfig returns a moderate photometric jitter.
func DefaultColorJitterConfig() ColorJitterConfig {
	return ColorJitterConfig{Brightness: 0.2, Contrast: 0.2, Saturation: 0.2, P: 0.5}
}

// ColorJitter perturbs brightness, contrast and saturation. Pixel values
// are treated as [0, 1] and clamped back into that range afterwards.
// Coordinates never move, so masks, boxes and keypoints are unaffected.
type ColorJitter struct {
	cfg ColorJitterConfig
}

// NewColorJitter builds the transform from cfg.
func NewColorJitter(cfg ColorJitterConfig) *ColorJitter {
	return &ColorJitter{cfg: cfg}
}

func (t *ColorJitter) Name() string { return "ColorJitter" }
func (t *ColorJitter) Kind() Kind   { return KindIntensity }

func factorRange(x float64) (float64, float64) {
	lo := 1 - x
	if lo < 0 {
		lo = 0
	}
	return lo, 1 + x
}

func (t *ColorJitter) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) == 0 {
		return nil, NewError(ErrCodeShapeMismatch, "empty shape")
	}
	b := shape[0]
	p := ParamMap{"batch_prob": s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch)}
	for _, f := range []struct {
		key    string
		amount float64
	}{
		{"brightness", t.cfg.Brightness},
		{"contrast", t.cfg.Contrast},
		{"saturation", t.cfg.Saturation},
	} {
		if f.amount == 0 {
			ones := make([]float64, b)
			for i := range ones {
				ones[i] = 1
			}
			p[f.key] = ones
			continue
		}
		lo, hi := factorRange(f.amount)
		p[f.key] = s.Uniform(b, lo, hi, t.cfg.SameOnBatch)
	}
	return p, nil
}

func (t *ColorJitter) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "ColorJitter wants a (B, C, H, W) batch, got shape %v", img.Shape())
	}
	b, c := img.Dim(0), img.Dim(1)
	plane := img.Dim(2) * img.Dim(3)
	bright, err := p.PerBatch("brightness", b)
	if err != nil {
		return nil, err
	}
	contrast, err := p.PerBatch("contrast", b)
	if err != nil {
		return nil, err
	}
	sat, err := p.PerBatch("saturation", b)
	if err != nil {
		return nil, err
	}
	applied, err := p.AppliedMask(b)
	if err != nil {
		return nil, err
	}

	out := img.Clone()
	data := out.Data()
	stride := out.BatchStride()
	for bi := 0; bi < b; bi++ {
		if !applied[bi] {
			continue
		}
		s := data[bi*stride : (bi+1)*stride]

		bf := float32(bright[bi])
		for i := range s {
			s[i] *= bf
		}

		// Contrast blends every pixel towards the image's mean luminance.
		cf := float32(contrast[bi])
		mean := grayMean(s, c, plane)
		for i := range s {
			s[i] = cf*s[i] + (1-cf)*mean
		}

		// Saturation blends towards the per-pixel gray; it only has a
		// meaning for 3-channel batches.
		if c == 3 {
			sf := float32(sat[bi])
			r, g, bl := s[:plane], s[plane:2*plane], s[2*plane:3*plane]
			for i := 0; i < plane; i++ {
				gray := lumaR*r[i] + lumaG*g[i] + lumaB*bl[i]
				r[i] = sf*r[i] + (1-sf)*gray
				g[i] = sf*g[i] + (1-sf)*gray
				bl[i] = sf*bl[i] + (1-sf)*gray
			}
		}
	}
	return out.Clamp(0, 1), nil
}

// grayMean is the mean luminance of one (C, H, W) block: the BT.601 gray
// mean for 3 channels, the plain mean otherwise.
func grayMean(s []float32, c, plane int) float32 {
	if c == 3 {
		var sum float64
		for i := 0; i < plane; i++ {
			sum += float64(lumaR*s[i] + lumaG*s[plane+i] + lumaB*s[2*plane+i])
		}
		return float32(sum / float64(plane))
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return float32(sum / float64(len(s)))
}
