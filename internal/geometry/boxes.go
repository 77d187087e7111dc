package geometry

import (
	"fmt"

	"github.com/tessellate-ml/augment/internal/tensor"
)

// BoxMode names the wire encoding of a bounding-box tensor.
type BoxMode int

const (
	// ModeVertices encodes each box as four (x, y) corners in the order
	// top-left, top-right, bottom-right, bottom-left.
	ModeVertices BoxMode = iota
	// ModeXYXY encodes each box as (x1, y1, x2, y2) corner pairs.
	ModeXYXY
	// ModeXYWH encodes each box as (x, y, width, height).
	ModeXYWH
)

func (m BoxMode) String() string {
	switch m {
	case ModeVertices:
		return "vertices"
	case ModeXYXY:
		return "xyxy"
	case ModeXYWH:
		return "xywh"
	default:
		return fmt.Sprintf("boxmode(%d)", int(m))
	}
}

// ParseBoxMode maps a mode name to its BoxMode.
func ParseBoxMode(s string) (BoxMode, error) {
	switch s {
	case "vertices":
		return ModeVertices, nil
	case "xyxy":
		return ModeXYXY, nil
	case "xywh":
		return ModeXYWH, nil
	default:
		return 0, fmt.Errorf("geometry: unknown box mode %q", s)
	}
}

// Boxes holds bounding boxes in the unified vertex representation
// (leading..., N, 4, 2), remembering the mode and shape they arrived in so
// they can be converted back after transformation. Whatever the input
// encoding, transforms only ever see corner points.
type Boxes struct {
	data      *tensor.Dense
	mode      BoxMode
	squeezedN bool
}

// BoxesFromTensor converts a box tensor into the unified representation.
// leadingDims says how many dims precede the box layout (1 for image
// batches, 2 when a video time dimension is still unfolded). Accepted
// layouts after the leading dims: (4, 2) or (N, 4, 2) for ModeVertices,
// (4) or (N, 4) for corner and width modes. A missing N is restored as 1
// and squeezed again on the way out.
func BoxesFromTensor(t *tensor.Dense, mode BoxMode, leadingDims int) (*Boxes, error) {
	shape := t.Shape()
	if leadingDims < 1 || len(shape) <= leadingDims {
		return nil, fmt.Errorf("geometry: box tensor shape %v too small for %d leading dims", shape, leadingDims)
	}
	tail := shape[leadingDims:]
	lead := shape[:leadingDims]

	switch mode {
	case ModeVertices:
		var n int
		var squeezed bool
		switch {
		case len(tail) == 2 && tail[0] == 4 && tail[1] == 2:
			n, squeezed = 1, true
		case len(tail) == 3 && tail[1] == 4 && tail[2] == 2:
			n = tail[0]
		default:
			return nil, fmt.Errorf("geometry: vertices boxes want (..., 4, 2) or (..., N, 4, 2), got %v", shape)
		}
		out, err := t.Clone().Reshape(append(append([]int{}, lead...), n, 4, 2)...)
		if err != nil {
			return nil, err
		}
		return &Boxes{data: out, mode: mode, squeezedN: squeezed}, nil

	case ModeXYXY, ModeXYWH:
		var n int
		var squeezed bool
		switch {
		case len(tail) == 1 && tail[0] == 4:
			n, squeezed = 1, true
		case len(tail) == 2 && tail[1] == 4:
			n = tail[0]
		default:
			return nil, fmt.Errorf("geometry: %s boxes want (..., 4) or (..., N, 4), got %v", mode, shape)
		}
		l := 1
		for _, d := range lead {
			l *= d
		}
		out := tensor.New(append(append([]int{}, lead...), n, 4, 2)...)
		src := t.Data()
		dst := out.Data()
		for i := 0; i < l*n; i++ {
			x1 := src[i*4+0]
			y1 := src[i*4+1]
			var x2, y2 float32
			if mode == ModeXYXY {
				x2, y2 = src[i*4+2], src[i*4+3]
			} else {
				x2, y2 = x1+src[i*4+2], y1+src[i*4+3]
			}
			v := dst[i*8 : i*8+8]
			v[0], v[1] = x1, y1
			v[2], v[3] = x2, y1
			v[4], v[5] = x2, y2
			v[6], v[7] = x1, y2
		}
		return &Boxes{data: out, mode: mode, squeezedN: squeezed}, nil

	default:
		return nil, fmt.Errorf("geometry: unknown box mode %d", int(mode))
	}
}

// Data returns the unified (leading..., N, 4, 2) vertex tensor.
func (b *Boxes) Data() *tensor.Dense { return b.data }

// Mode returns the encoding the boxes arrived in.
func (b *Boxes) Mode() BoxMode { return b.mode }

// WithData returns boxes carrying t but keeping the original mode and
// squeeze bookkeeping. Used after transforming the vertex tensor.
func (b *Boxes) WithData(t *tensor.Dense) *Boxes {
	return &Boxes{data: t, mode: b.mode, squeezedN: b.squeezedN}
}

// ToTensor converts back to the arrival encoding. Corner modes take the
// axis-aligned hull of the four vertices, so boxes that were rotated come
// back as their enclosing upright box; pure vertex mode is lossless.
func (b *Boxes) ToTensor() (*tensor.Dense, error) {
	shape := b.data.Shape()
	lead := shape[:len(shape)-3]
	n := shape[len(shape)-3]

	switch b.mode {
	case ModeVertices:
		out := b.data.Clone()
		if b.squeezedN {
			if n != 1 {
				return nil, fmt.Errorf("geometry: cannot squeeze N=%d boxes back to (..., 4, 2)", n)
			}
			return out.Reshape(append(append([]int{}, lead...), 4, 2)...)
		}
		return out, nil

	case ModeXYXY, ModeXYWH:
		l := 1
		for _, d := range lead {
			l *= d
		}
		var out *tensor.Dense
		if b.squeezedN {
			if n != 1 {
				return nil, fmt.Errorf("geometry: cannot squeeze N=%d boxes back to (..., 4)", n)
			}
			out = tensor.New(append(append([]int{}, lead...), 4)...)
		} else {
			out = tensor.New(append(append([]int{}, lead...), n, 4)...)
		}
		src := b.data.Data()
		dst := out.Data()
		for i := 0; i < l*n; i++ {
			v := src[i*8 : i*8+8]
			minX, maxX := v[0], v[0]
			minY, maxY := v[1], v[1]
			for p := 2; p < 8; p += 2 {
				if v[p] < minX {
					minX = v[p]
				}
				if v[p] > maxX {
					maxX = v[p]
				}
				if v[p+1] < minY {
					minY = v[p+1]
				}
				if v[p+1] > maxY {
					maxY = v[p+1]
				}
			}
			if b.mode == ModeXYXY {
				dst[i*4+0], dst[i*4+1] = minX, minY
				dst[i*4+2], dst[i*4+3] = maxX, maxY
			} else {
				dst[i*4+0], dst[i*4+1] = minX, minY
				dst[i*4+2], dst[i*4+3] = maxX-minX, maxY-minY
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("geometry: unknown box mode %d", int(b.mode))
	}
}
