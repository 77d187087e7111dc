package geometry

import (
	"fmt"
	"math"

	"github.com/tessellate-ml/augment/internal/tensor"
)

// Interp selects the sampling kernel used by WarpAffine.
type Interp int

const (
	// InterpNearest samples the nearest source pixel. Exact for flips and
	// axis-aligned integer translations, and the right choice for masks.
	InterpNearest Interp = iota
	// InterpBilinear blends the four surrounding source pixels.
	InterpBilinear
)

func (ip Interp) String() string {
	switch ip {
	case InterpNearest:
		return "nearest"
	case InterpBilinear:
		return "bilinear"
	default:
		return fmt.Sprintf("interp(%d)", int(ip))
	}
}

// WarpAffine resamples a (B, C, H, W) image batch under per-element affine
// transforms. The matrices map source to destination coordinates; each
// destination pixel is filled by inverse-mapping into the source. Samples
// falling outside the source are zero.
func WarpAffine(img *tensor.Dense, a *Affines, ip Interp) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, fmt.Errorf("geometry: warp wants a (B, C, H, W) tensor, got shape %v", img.Shape())
	}
	b, c, h, w := img.Dim(0), img.Dim(1), img.Dim(2), img.Dim(3)
	if a.Batch() != b {
		return nil, fmt.Errorf("geometry: %d transforms for batch %d", a.Batch(), b)
	}
	inv, err := a.Inverse()
	if err != nil {
		return nil, err
	}
	out := tensor.New(b, c, h, w)
	src := img.Data()
	dst := out.Data()
	plane := h * w
	for bi := 0; bi < b; bi++ {
		m := inv.At(bi)
		m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
		m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
		base := bi * c * plane
		for y := 0; y < h; y++ {
			fy := float64(y)
			for x := 0; x < w; x++ {
				fx := float64(x)
				sx := m00*fx + m01*fy + m02
				sy := m10*fx + m11*fy + m12
				switch ip {
				case InterpNearest:
					ix := int(math.Round(sx))
					iy := int(math.Round(sy))
					if ix < 0 || ix >= w || iy < 0 || iy >= h {
						continue
					}
					for ci := 0; ci < c; ci++ {
						dst[base+ci*plane+y*w+x] = src[base+ci*plane+iy*w+ix]
					}
				case InterpBilinear:
					x0 := int(math.Floor(sx))
					y0 := int(math.Floor(sy))
					wx := sx - float64(x0)
					wy := sy - float64(y0)
					for ci := 0; ci < c; ci++ {
						p := base + ci*plane
						v := (1-wx)*(1-wy)*sample(src, p, x0, y0, w, h) +
							wx*(1-wy)*sample(src, p, x0+1, y0, w, h) +
							(1-wx)*wy*sample(src, p, x0, y0+1, w, h) +
							wx*wy*sample(src, p, x0+1, y0+1, w, h)
						dst[p+y*w+x] = float32(v)
					}
				default:
					return nil, fmt.Errorf("geometry: unknown interpolation %d", int(ip))
				}
			}
		}
	}
	return out, nil
}

func sample(src []float32, plane, x, y, w, h int) float64 {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return float64(src[plane+y*w+x])
}
