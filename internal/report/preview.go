package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/tessellate-ml/augment/internal/tensor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PreviewData holds the geometry to overlay. Boxes are vertices mode,
// (B, 4, 2) or (B, N, 4, 2); keypoints are (B, 2) or (B, N, 2). Any of
// the four tensors may be nil, but at least one side must be present.
type PreviewData struct {
	Height int
	Width  int

	BoxesBefore  *tensor.Dense
	BoxesAfter   *tensor.Dense
	PointsBefore *tensor.Dense
	PointsAfter  *tensor.Dense
}

// SavePreview plots the before and after geometry over the image extent
// and writes a PNG. Before geometry is gray; after geometry gets one
// colour per batch element so elements can be matched across the pass.
func SavePreview(path string, d PreviewData) error {
	if d.BoxesBefore == nil && d.BoxesAfter == nil && d.PointsBefore == nil && d.PointsAfter == nil {
		return fmt.Errorf("nothing to draw")
	}
	if d.Height < 1 || d.Width < 1 {
		return fmt.Errorf("preview needs the image extent, got %dx%d", d.Height, d.Width)
	}

	p := plot.New()
	p.Title.Text = "Geometry Preview"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	// Pad the extent a little so geometry on the border stays visible.
	h, w := float64(d.Height), float64(d.Width)
	pad := 0.05 * math.Max(h, w)
	p.X.Min, p.X.Max = -pad, w+pad
	p.Y.Min, p.Y.Max = -pad, h+pad

	gray := color.RGBA{R: 158, G: 158, B: 158, A: 255}
	beforeLabelled := false
	afterLabelled := make(map[int]bool)

	if d.BoxesBefore != nil {
		groups, err := boxPolygons(d.BoxesBefore, h)
		if err != nil {
			return fmt.Errorf("before boxes: %w", err)
		}
		for _, polys := range groups {
			for _, poly := range polys {
				ln, err := plotter.NewLine(poly)
				if err != nil {
					return err
				}
				ln.Color = gray
				ln.Width = vg.Points(1)
				p.Add(ln)
				if !beforeLabelled {
					p.Legend.Add("before", ln)
					beforeLabelled = true
				}
			}
		}
	}

	if d.BoxesAfter != nil {
		groups, err := boxPolygons(d.BoxesAfter, h)
		if err != nil {
			return fmt.Errorf("after boxes: %w", err)
		}
		colors := generateColors(len(groups))
		for b, polys := range groups {
			for _, poly := range polys {
				ln, err := plotter.NewLine(poly)
				if err != nil {
					return err
				}
				ln.Color = colors[b]
				ln.Width = vg.Points(2)
				p.Add(ln)
				if !afterLabelled[b] {
					p.Legend.Add(fmt.Sprintf("after [%d]", b), ln)
					afterLabelled[b] = true
				}
			}
		}
	}

	if d.PointsBefore != nil {
		sets, err := pointSets(d.PointsBefore, h)
		if err != nil {
			return fmt.Errorf("before keypoints: %w", err)
		}
		for _, pts := range sets {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return err
			}
			sc.GlyphStyle.Color = gray
			sc.GlyphStyle.Radius = vg.Points(3)
			p.Add(sc)
			if !beforeLabelled {
				p.Legend.Add("before", sc)
				beforeLabelled = true
			}
		}
	}

	if d.PointsAfter != nil {
		sets, err := pointSets(d.PointsAfter, h)
		if err != nil {
			return fmt.Errorf("after keypoints: %w", err)
		}
		colors := generateColors(len(sets))
		for b, pts := range sets {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return err
			}
			sc.GlyphStyle.Color = colors[b]
			sc.GlyphStyle.Radius = vg.Points(4)
			p.Add(sc)
			if !afterLabelled[b] {
				p.Legend.Add(fmt.Sprintf("after [%d]", b), sc)
				afterLabelled[b] = true
			}
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

// boxPolygons converts a vertices-mode box batch into closed polygon
// outlines, grouped by batch element.
func boxPolygons(t *tensor.Dense, h float64) ([][]plotter.XYs, error) {
	shape := t.Shape()
	var b, n int
	switch {
	case len(shape) == 3 && shape[1] == 4 && shape[2] == 2:
		b, n = shape[0], 1
	case len(shape) == 4 && shape[2] == 4 && shape[3] == 2:
		b, n = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("boxes must be (B, 4, 2) or (B, N, 4, 2), got %v", shape)
	}

	data := t.Data()
	groups := make([][]plotter.XYs, b)
	for bi := 0; bi < b; bi++ {
		polys := make([]plotter.XYs, 0, n)
		for ni := 0; ni < n; ni++ {
			base := (bi*n + ni) * 8
			poly := make(plotter.XYs, 0, 5)
			for v := 0; v < 4; v++ {
				x := float64(data[base+v*2])
				y := float64(data[base+v*2+1])
				// Image y grows downward; flip into plot orientation.
				poly = append(poly, plotter.XY{X: x, Y: h - y})
			}
			poly = append(poly, poly[0])
			polys = append(polys, poly)
		}
		groups[bi] = polys
	}
	return groups, nil
}

// pointSets converts a keypoint batch into one point set per batch element.
func pointSets(t *tensor.Dense, h float64) ([]plotter.XYs, error) {
	shape := t.Shape()
	var b, n int
	switch {
	case len(shape) == 2 && shape[1] == 2:
		b, n = shape[0], 1
	case len(shape) == 3 && shape[2] == 2:
		b, n = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("keypoints must be (B, 2) or (B, N, 2), got %v", shape)
	}

	data := t.Data()
	sets := make([]plotter.XYs, b)
	for bi := 0; bi < b; bi++ {
		pts := make(plotter.XYs, 0, n)
		for ni := 0; ni < n; ni++ {
			base := (bi*n + ni) * 2
			pts = append(pts, plotter.XY{X: float64(data[base]), Y: h - float64(data[base+1])})
		}
		sets[bi] = pts
	}
	return sets, nil
}

// generateColors creates a palette of distinct colours, one per batch
// element.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
