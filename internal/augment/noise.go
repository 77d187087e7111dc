package augment

import (
	"github.com/tessellate-ml/augment/internal/tensor"
)

// GaussianNoiseConfig configures RandomGaussianNoise.
type GaussianNoiseConfig struct {
	Mean        float64 // Noise mean
	Std         float64 // Noise standard deviation
	P           float64 // Per-element probability
	SameOnBatch bool    // Share one noise field across the batch
}

// DefaultGaussianNoiseConfig returns light zero-mean noise.
func DefaultGaussianNoiseConfig() GaussianNoiseConfig {
	return GaussianNoiseConfig{Std: 0.1, P: 0.5}
}

// RandomGaussianNoise adds sampled noise to pixels. The noise field itself
// is drawn at parameter time and recorded, so a replayed ledger reproduces
// the exact same corruption.
type RandomGaussianNoise struct {
	cfg GaussianNoiseConfig
}

// NewRandomGaussianNoise builds the transform from cfg.
func NewRandomGaussianNoise(cfg GaussianNoiseConfig) *RandomGaussianNoise {
	return &RandomGaussianNoise{cfg: cfg}
}

func (t *RandomGaussianNoise) Name() string { return "RandomGaussianNoise" }
func (t *RandomGaussianNoise) Kind() Kind   { return KindIntensity }

func (t *RandomGaussianNoise) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "RandomGaussianNoise samples against (B, C, H, W), got %v", shape)
	}
	b := shape[0]
	block := shape[1] * shape[2] * shape[3]
	var noise []float64
	if t.cfg.SameOnBatch {
		one := s.Normal(block, t.cfg.Mean, t.cfg.Std, false)
		noise = make([]float64, 0, b*block)
		for i := 0; i < b; i++ {
			noise = append(noise, one...)
		}
	} else {
		noise = s.Normal(b*block, t.cfg.Mean, t.cfg.Std, false)
	}
	return ParamMap{
		"batch_prob": s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch),
		"noise":      noise,
	}, nil
}

func (t *RandomGaussianNoise) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "RandomGaussianNoise wants a (B, C, H, W) batch, got shape %v", img.Shape())
	}
	b := img.Dim(0)
	stride := img.BatchStride()
	noise, ok := p["noise"]
	if !ok {
		return nil, NewError(ErrCodeMissingParameters, "noise field missing")
	}
	if len(noise) != b*stride {
		return nil, NewError(ErrCodeShapeMismatch, "noise field has %d values for %d pixels", len(noise), b*stride)
	}
	applied, err := p.AppliedMask(b)
	if err != nil {
		return nil, err
	}
	out := img.Clone()
	data := out.Data()
	for bi := 0; bi < b; bi++ {
		if !applied[bi] {
			continue
		}
		s := data[bi*stride : (bi+1)*stride]
		n := noise[bi*stride : (bi+1)*stride]
		for i := range s {
			s[i] += float32(n[i])
		}
	}
	return out, nil
}
