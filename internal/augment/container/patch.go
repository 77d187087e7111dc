package container

import (
	"fmt"

	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// PatchConfig configures the patch grid.
type PatchConfig struct {
	GridH int // Patch rows
	GridW int // Patch columns
}

// DefaultPatchConfig splits the image into a 2x2 grid.
func DefaultPatchConfig() PatchConfig {
	return PatchConfig{GridH: 2, GridW: 2}
}

// PatchSequential cuts each image into a grid of patches and augments
// every patch independently, cycling through its children patch by patch.
// It acts on pixels only: masks, boxes and keypoints cannot follow
// patch-local changes, and a patch pass cannot be inverted.
type PatchSequential struct {
	cfg      PatchConfig
	children []augment.Transform
	names    []string
}

// NewPatchSequential validates the children and builds the stage. Only
// leaf transforms are allowed; geometric children are accepted but warp
// patches in place, which rarely lines up across patch borders, so their
// presence is logged.
func NewPatchSequential(cfg PatchConfig, children ...augment.Transform) (*PatchSequential, error) {
	if len(children) == 0 {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "patch stage needs at least one child")
	}
	if cfg.GridH < 1 || cfg.GridW < 1 {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "patch grid %dx%d invalid", cfg.GridH, cfg.GridW)
	}
	q := &PatchSequential{cfg: cfg, children: children, names: make([]string, len(children))}
	for i, c := range children {
		if _, ok := c.(augment.LabelMixer); ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "label mixing inside a patch stage is not defined")
		}
		if c.Kind() == augment.KindGeometric {
			augment.Opsf("patch stage child %s warps patch-local coordinates; seams will not line up", c.Name())
		}
		q.names[i] = fmt.Sprintf("%s_%d", c.Name(), i)
	}
	return q, nil
}

func (q *PatchSequential) Name() string       { return "PatchSequential" }
func (q *PatchSequential) Kind() augment.Kind { return augment.KindPatch }

// Children returns the child modules in construction order.
func (q *PatchSequential) Children() []augment.Module {
	out := make([]augment.Module, len(q.children))
	for i, c := range q.children {
		out[i] = c
	}
	return out
}

// Grid returns the configured patch grid.
func (q *PatchSequential) Grid() (int, int) { return q.cfg.GridH, q.cfg.GridW }

// Submodule resolves a recorded patch name like "ColorJitter_1_p3" back to
// the child transform.
func (q *PatchSequential) Submodule(name string) (augment.Module, error) {
	for i, c := range q.children {
		for p := 0; p < q.cfg.GridH*q.cfg.GridW; p++ {
			if name == fmt.Sprintf("%s_p%d", q.names[i], p) {
				return c, nil
			}
		}
	}
	return nil, augment.NewError(augment.ErrCodeConfiguration, "no patch child named %q", name)
}

// IntensityOnly reports whether every child only changes pixel values.
func (q *PatchSequential) IntensityOnly() bool {
	for _, c := range q.children {
		if c.Kind() != augment.KindIntensity {
			return false
		}
	}
	return true
}

// HasLabelMixer is always false; construction rejects mixers.
func (q *PatchSequential) HasLabelMixer() bool { return false }

// ParamsTree draws parameters patch by patch, each patch sampled against
// its own (B, C, ph, pw) shape. Patch p runs child p modulo the child
// count, recorded as "<child>_p<p>".
func (q *PatchSequential) ParamsTree(shape []int, s *augment.Sampler) (augment.ParamItem, error) {
	if len(shape) != 4 {
		return augment.ParamItem{}, augment.NewError(augment.ErrCodeShapeMismatch, "patch stage samples against (B, C, H, W), got %v", shape)
	}
	b, c, h, w := shape[0], shape[1], shape[2], shape[3]
	if h%q.cfg.GridH != 0 || w%q.cfg.GridW != 0 {
		return augment.ParamItem{}, augment.NewError(augment.ErrCodeShapeMismatch, "image %dx%d does not divide into a %dx%d patch grid", h, w, q.cfg.GridH, q.cfg.GridW)
	}
	ph, pw := h/q.cfg.GridH, w/q.cfg.GridW
	n := q.cfg.GridH * q.cfg.GridW

	item := augment.ParamItem{
		Data:  augment.ParamMap{"grid": []float64{float64(q.cfg.GridH), float64(q.cfg.GridW)}},
		Items: make([]augment.ParamItem, 0, n),
	}
	for p := 0; p < n; p++ {
		idx := p % len(q.children)
		pm, err := q.children[idx].Params([]int{b, c, ph, pw}, s)
		if err != nil {
			return augment.ParamItem{}, err
		}
		item.Items = append(item.Items, augment.ParamItem{
			Name: fmt.Sprintf("%s_p%d", q.names[idx], p),
			Data: pm,
		})
	}
	return item, nil
}

// ApplyPatches runs the recorded per-patch parameters over an image
// batch. The grid recorded at sampling time must divide the image.
func (q *PatchSequential) ApplyPatches(item augment.ParamItem, img *tensor.Dense) (*tensor.Dense, error) {
	if img.Dims() != 4 {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "patch stage wants a (B, C, H, W) batch, got shape %v", img.Shape())
	}
	grid, err := item.Data.PerBatch("grid", 2)
	if err != nil {
		return nil, err
	}
	gh, gw := int(grid[0]), int(grid[1])
	b, c, h, w := img.Dim(0), img.Dim(1), img.Dim(2), img.Dim(3)
	if gh < 1 || gw < 1 || h%gh != 0 || w%gw != 0 {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "image %dx%d does not divide into a %dx%d patch grid", h, w, gh, gw)
	}
	if len(item.Items) != gh*gw {
		return nil, augment.NewError(augment.ErrCodeMissingParameters, "%d patch items for a %dx%d grid", len(item.Items), gh, gw)
	}
	ph, pw := h/gh, w/gw

	out := img.Clone()
	for p, sub := range item.Items {
		mod, err := q.Submodule(sub.Name)
		if err != nil {
			return nil, err
		}
		tr, ok := mod.(augment.Transform)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "patch child %q is not a transform", sub.Name)
		}
		gy, gx := p/gw, p%gw
		patch := extractPatch(out, b, c, gy*ph, gx*pw, ph, pw)
		done, err := tr.Apply(patch, sub.Data)
		if err != nil {
			return nil, err
		}
		writePatch(out, done, b, c, gy*ph, gx*pw, ph, pw)
	}
	return out, nil
}

// extractPatch copies the (B, C, ph, pw) window at (y0, x0) out of img.
func extractPatch(img *tensor.Dense, b, c, y0, x0, ph, pw int) *tensor.Dense {
	h, w := img.Dim(2), img.Dim(3)
	patch := tensor.New(b, c, ph, pw)
	src := img.Data()
	dst := patch.Data()
	for bi := 0; bi < b; bi++ {
		for ci := 0; ci < c; ci++ {
			srcBase := (bi*c + ci) * h * w
			dstBase := (bi*c + ci) * ph * pw
			for y := 0; y < ph; y++ {
				copy(dst[dstBase+y*pw:dstBase+(y+1)*pw], src[srcBase+(y0+y)*w+x0:srcBase+(y0+y)*w+x0+pw])
			}
		}
	}
	return patch
}

// writePatch copies a (B, C, ph, pw) patch back into img at (y0, x0).
func writePatch(img, patch *tensor.Dense, b, c, y0, x0, ph, pw int) {
	h, w := img.Dim(2), img.Dim(3)
	src := patch.Data()
	dst := img.Data()
	for bi := 0; bi < b; bi++ {
		for ci := 0; ci < c; ci++ {
			dstBase := (bi*c + ci) * h * w
			srcBase := (bi*c + ci) * ph * pw
			for y := 0; y < ph; y++ {
				copy(dst[dstBase+(y0+y)*w+x0:dstBase+(y0+y)*w+x0+pw], src[srcBase+y*pw:srcBase+(y+1)*pw])
			}
		}
	}
}
