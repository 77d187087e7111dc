// Package geometry provides the coordinate machinery behind geometric
// augmentations: batches of 2D affine transforms, image warping kernels,
// and bounding-box format conversion.
//
// Conventions: pixel centers sit at integer coordinates, the origin is the
// top-left pixel, x grows right and y grows down. An affine matrix maps
// source coordinates to destination coordinates; warping inverts it
// internally. Positive rotation angles rotate content counter-clockwise.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tessellate-ml/augment/internal/tensor"
)

// Affines is a batch of 3×3 homogeneous 2D transforms, one per batch
// element. Per-element matrices let probability-gated transforms hold an
// identity for the elements the gate skipped.
type Affines struct {
	ms []*mat.Dense
}

// Identity returns a batch of b identity transforms.
func Identity(b int) *Affines {
	a := &Affines{ms: make([]*mat.Dense, b)}
	for i := range a.ms {
		a.ms[i] = mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	return a
}

// Batch returns the number of transforms.
func (a *Affines) Batch() int { return len(a.ms) }

// At returns the i-th matrix. The matrix is not copied.
func (a *Affines) At(i int) *mat.Dense { return a.ms[i] }

// RotationAbout returns per-element rotations of angles[i] degrees about
// (cx, cy), following the OpenCV getRotationMatrix2D convention.
func RotationAbout(angles []float64, cx, cy float64) *Affines {
	a := &Affines{ms: make([]*mat.Dense, len(angles))}
	for i, deg := range angles {
		rad := deg * math.Pi / 180
		alpha := math.Cos(rad)
		beta := math.Sin(rad)
		a.ms[i] = mat.NewDense(3, 3, []float64{
			alpha, beta, (1-alpha)*cx - beta*cy,
			-beta, alpha, beta*cx + (1-alpha)*cy,
			0, 0, 1,
		})
	}
	return a
}

// Translation returns per-element translations by (tx[i], ty[i]).
func Translation(tx, ty []float64) *Affines {
	a := &Affines{ms: make([]*mat.Dense, len(tx))}
	for i := range tx {
		a.ms[i] = mat.NewDense(3, 3, []float64{
			1, 0, tx[i],
			0, 1, ty[i],
			0, 0, 1,
		})
	}
	return a
}

// ScaleAbout returns per-element uniform scalings by s[i] about (cx, cy).
func ScaleAbout(s []float64, cx, cy float64) *Affines {
	a := &Affines{ms: make([]*mat.Dense, len(s))}
	for i, si := range s {
		a.ms[i] = mat.NewDense(3, 3, []float64{
			si, 0, (1 - si) * cx,
			0, si, (1 - si) * cy,
			0, 0, 1,
		})
	}
	return a
}

// FlipHorizontal returns b mirror transforms about the vertical centerline
// of a width-w image: x' = (w-1) - x.
func FlipHorizontal(b int, w int) *Affines {
	a := &Affines{ms: make([]*mat.Dense, b)}
	for i := range a.ms {
		a.ms[i] = mat.NewDense(3, 3, []float64{
			-1, 0, float64(w - 1),
			0, 1, 0,
			0, 0, 1,
		})
	}
	return a
}

// FlipVertical returns b mirror transforms about the horizontal centerline
// of a height-h image: y' = (h-1) - y.
func FlipVertical(b int, h int) *Affines {
	a := &Affines{ms: make([]*mat.Dense, b)}
	for i := range a.ms {
		a.ms[i] = mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, -1, float64(h - 1),
			0, 0, 1,
		})
	}
	return a
}

// Compose returns the per-element product a∘b: apply b first, then a.
func (a *Affines) Compose(b *Affines) (*Affines, error) {
	if len(a.ms) != len(b.ms) {
		return nil, fmt.Errorf("geometry: compose batch mismatch %d vs %d", len(a.ms), len(b.ms))
	}
	out := &Affines{ms: make([]*mat.Dense, len(a.ms))}
	for i := range a.ms {
		m := mat.NewDense(3, 3, nil)
		m.Mul(a.ms[i], b.ms[i])
		out.ms[i] = m
	}
	return out, nil
}

// Inverse returns the per-element inverse transforms.
func (a *Affines) Inverse() (*Affines, error) {
	out := &Affines{ms: make([]*mat.Dense, len(a.ms))}
	for i := range a.ms {
		m := mat.NewDense(3, 3, nil)
		if err := m.Inverse(a.ms[i]); err != nil {
			return nil, fmt.Errorf("geometry: singular transform at batch %d: %w", i, err)
		}
		out.ms[i] = m
	}
	return out, nil
}

// MaskIdentity replaces matrix i with the identity wherever keep[i] is
// false. Used by probability gates: skipped batch elements keep their
// coordinates untouched.
func (a *Affines) MaskIdentity(keep []bool) *Affines {
	for i, k := range keep {
		if i >= len(a.ms) {
			break
		}
		if !k {
			a.ms[i] = mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
		}
	}
	return a
}

// ApplyPoints transforms a point tensor holding (x, y) pairs in its last
// dimension with the batch in its first, e.g. (B, N, 2) keypoints or
// (B, N, 4, 2) box vertices. The result is a new tensor of the same shape.
func (a *Affines) ApplyPoints(t *tensor.Dense) (*tensor.Dense, error) {
	if t.Dim(t.Dims()-1) != 2 {
		return nil, fmt.Errorf("geometry: point tensor must end in dim 2, got shape %v", t.Shape())
	}
	if t.Dim(0) != len(a.ms) {
		return nil, fmt.Errorf("geometry: %d transforms for batch %d", len(a.ms), t.Dim(0))
	}
	out := t.Clone()
	stride := out.BatchStride()
	for b := 0; b < out.Batch(); b++ {
		m := a.ms[b]
		m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
		m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
		s := out.Data()[b*stride : (b+1)*stride]
		for p := 0; p+1 < len(s); p += 2 {
			x := float64(s[p])
			y := float64(s[p+1])
			s[p] = float32(m00*x + m01*y + m02)
			s[p+1] = float32(m10*x + m11*y + m12)
		}
	}
	return out, nil
}

// IsIdentity reports whether every matrix in the batch is exactly the
// identity.
func (a *Affines) IsIdentity() bool {
	for _, m := range a.ms {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				want := 0.0
				if r == c {
					want = 1.0
				}
				if m.At(r, c) != want {
					return false
				}
			}
		}
	}
	return true
}
