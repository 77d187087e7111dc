package augment

import (
	"math"

	"github.com/tessellate-ml/augment/internal/tensor"
)

// ErasingConfig configures RandomErasing.
type ErasingConfig struct {
	Scale       [2]float64 // Erased area as a fraction of the image area
	Ratio       [2]float64 // Aspect ratio range (width / height) of the box
	Value       float64    // Fill value for erased pixels
	P           float64    // Per-element probability
	SameOnBatch bool       // Erase the same box on every element
}

// DefaultErasingConfig matches the usual cutout setup: a box covering a
// few percent of the image, roughly square, filled with zeros.
func DefaultErasingConfig() ErasingConfig {
	return ErasingConfig{
		Scale: [2]float64{0.02, 0.33},
		Ratio: [2]float64{0.3, 3.3},
		P:     0.5,
	}
}

// RandomErasing blanks a random rectangle. Pixels and dense masks are
// erased; box and keypoint coordinates stay where they are, and the
// erasure cannot be inverted.
type RandomErasing struct {
	cfg ErasingConfig
}

// NewRandomErasing builds the transform from cfg.
func NewRandomErasing(cfg ErasingConfig) *RandomErasing {
	return &RandomErasing{cfg: cfg}
}

func (t *RandomErasing) Name() string { return "RandomErasing" }
func (t *RandomErasing) Kind() Kind   { return KindErasing }

// Params resolves the sampled area and aspect into integral pixel boxes so
// the ledger replays without re-deriving anything from the config.
func (t *RandomErasing) Params(shape []int, s *Sampler) (ParamMap, error) {
	if len(shape) != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "RandomErasing samples against (B, C, H, W), got %v", shape)
	}
	b, h, w := shape[0], shape[2], shape[3]
	areas := s.Uniform(b, t.cfg.Scale[0], t.cfg.Scale[1], t.cfg.SameOnBatch)
	aspects := s.Uniform(b, t.cfg.Ratio[0], t.cfg.Ratio[1], t.cfg.SameOnBatch)
	xsFrac := s.Uniform(b, 0, 1, t.cfg.SameOnBatch)
	ysFrac := s.Uniform(b, 0, 1, t.cfg.SameOnBatch)

	xs := make([]float64, b)
	ys := make([]float64, b)
	ws := make([]float64, b)
	hs := make([]float64, b)
	vs := make([]float64, b)
	for i := 0; i < b; i++ {
		area := areas[i] * float64(h) * float64(w)
		bw := clampInt(int(math.Round(math.Sqrt(area*aspects[i]))), 1, w)
		bh := clampInt(int(math.Round(math.Sqrt(area/aspects[i]))), 1, h)
		ws[i] = float64(bw)
		hs[i] = float64(bh)
		xs[i] = math.Floor(xsFrac[i] * float64(w-bw+1))
		ys[i] = math.Floor(ysFrac[i] * float64(h-bh+1))
		vs[i] = t.cfg.Value
	}
	return ParamMap{
		"batch_prob": s.Bernoulli(b, t.cfg.P, t.cfg.SameOnBatch),
		"x":          xs,
		"y":          ys,
		"w":          ws,
		"h":          hs,
		"value":      vs,
	}, nil
}

func (t *RandomErasing) Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	fills, err := p.PerBatch("value", img.Dim(0))
	if err != nil {
		return nil, err
	}
	return eraseRegions(img, p, fills)
}

// EraseMask blanks the same regions on a dense mask, always with zeros.
func (t *RandomErasing) EraseMask(mask *tensor.Dense, p ParamMap) (*tensor.Dense, error) {
	return eraseRegions(mask, p, nil)
}

// eraseRegions blanks the recorded per-element boxes. fills holds one fill
// value per element; nil fills with zeros.
func eraseRegions(img *tensor.Dense, p ParamMap, fills []float64) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, NewError(ErrCodeShapeMismatch, "erasing wants a (B, C, H, W) batch, got shape %v", img.Shape())
	}
	b, c, h, w := img.Dim(0), img.Dim(1), img.Dim(2), img.Dim(3)
	xs, err := p.PerBatch("x", b)
	if err != nil {
		return nil, err
	}
	ys, err := p.PerBatch("y", b)
	if err != nil {
		return nil, err
	}
	ws, err := p.PerBatch("w", b)
	if err != nil {
		return nil, err
	}
	hs, err := p.PerBatch("h", b)
	if err != nil {
		return nil, err
	}
	applied, err := p.AppliedMask(b)
	if err != nil {
		return nil, err
	}

	out := img.Clone()
	data := out.Data()
	plane := h * w
	for bi := 0; bi < b; bi++ {
		if !applied[bi] {
			continue
		}
		var fill float32
		if fills != nil {
			fill = float32(fills[bi])
		}
		x0 := clampInt(int(xs[bi]), 0, w)
		y0 := clampInt(int(ys[bi]), 0, h)
		x1 := clampInt(x0+int(ws[bi]), 0, w)
		y1 := clampInt(y0+int(hs[bi]), 0, h)
		for ci := 0; ci < c; ci++ {
			base := bi*c*plane + ci*plane
			for y := y0; y < y1; y++ {
				row := data[base+y*w+x0 : base+y*w+x1]
				for i := range row {
					row[i] = fill
				}
			}
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
