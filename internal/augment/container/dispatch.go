package container

import (
	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// The dispatchers below walk a recorded parameter tree next to the module
// tree that produced it, applying each stage to one modality. The kind
// switch is exhaustive over the closed set; a module with any other kind
// is a configuration error, never a silent skip.

// forwardInput runs one module's recorded pass over the image batch.
func forwardInput(mod augment.Module, item augment.ParamItem, img *tensor.Dense) (*tensor.Dense, error) {
	switch mod.Kind() {
	case augment.KindIntensity, augment.KindGeometric, augment.KindErasing:
		tr, ok := mod.(augment.Transform)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s has a leaf kind but is not a transform", mod.Name())
		}
		return tr.Apply(img, item.Data)

	case augment.KindSequential:
		seq, ok := mod.(*Sequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a sequential stage", mod.Name())
		}
		var err error
		for _, sub := range item.Items {
			child, cerr := seq.Submodule(sub.Name)
			if cerr != nil {
				return nil, cerr
			}
			augment.Tracef("forward input %s", sub.Name)
			if img, err = forwardInput(child, sub, img); err != nil {
				return nil, err
			}
		}
		return img, nil

	case augment.KindVideo:
		v, ok := mod.(*VideoSequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a video stage", mod.Name())
		}
		return videoPass(v, item, img, forwardInput, false)

	case augment.KindPatch:
		p, ok := mod.(*PatchSequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a patch stage", mod.Name())
		}
		return p.ApplyPatches(item, img)

	default:
		return nil, augment.NewError(augment.ErrCodeConfiguration, "unknown module kind %s", mod.Kind())
	}
}

// inverseInput undoes one module's recorded pass on the image batch.
// Intensity and erasing stages cannot be undone and pass pixels through.
func inverseInput(mod augment.Module, item augment.ParamItem, img *tensor.Dense) (*tensor.Dense, error) {
	switch mod.Kind() {
	case augment.KindIntensity, augment.KindErasing:
		return img, nil

	case augment.KindGeometric:
		g, ok := mod.(augment.Geometric)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s has geometric kind but no matrix", mod.Name())
		}
		if img.Dims() != 4 {
			return nil, augment.NewError(augment.ErrCodeShapeMismatch, "%s inverse wants a (B, C, H, W) batch, got shape %v", mod.Name(), img.Shape())
		}
		m, err := g.Matrix(item.Data, [2]int{img.Dim(2), img.Dim(3)})
		if err != nil {
			return nil, err
		}
		inv, err := m.Inverse()
		if err != nil {
			return nil, augment.WrapError(augment.ErrCodeInternal, err, "%s inverse", mod.Name())
		}
		out, err := geometry.WarpAffine(img, inv, g.Interp())
		if err != nil {
			return nil, augment.WrapError(augment.ErrCodeInternal, err, "%s inverse warp", mod.Name())
		}
		return out, nil

	case augment.KindSequential:
		seq, ok := mod.(*Sequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a sequential stage", mod.Name())
		}
		var err error
		for i := len(item.Items) - 1; i >= 0; i-- {
			sub := item.Items[i]
			child, cerr := seq.Submodule(sub.Name)
			if cerr != nil {
				return nil, cerr
			}
			augment.Tracef("inverse input %s", sub.Name)
			if img, err = inverseInput(child, sub, img); err != nil {
				return nil, err
			}
		}
		return img, nil

	case augment.KindVideo:
		v, ok := mod.(*VideoSequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a video stage", mod.Name())
		}
		return videoPass(v, item, img, inverseInput, true)

	case augment.KindPatch:
		return nil, augment.NewError(augment.ErrCodeNotSupported, "a patch stage cannot be inverted")

	default:
		return nil, augment.NewError(augment.ErrCodeConfiguration, "unknown module kind %s", mod.Kind())
	}
}

// forwardExtra carries a non-image modality through one module. t is the
// mask batch, the unified box vertex tensor, or the keypoint tensor; hw
// is the canonical image size matrices are built against.
func forwardExtra(key augment.DataKey, mod augment.Module, item augment.ParamItem, t *tensor.Dense, hw [2]int) (*tensor.Dense, error) {
	switch mod.Kind() {
	case augment.KindIntensity:
		return t, nil

	case augment.KindGeometric:
		g, ok := mod.(augment.Geometric)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s has geometric kind but no matrix", mod.Name())
		}
		m, err := g.Matrix(item.Data, hw)
		if err != nil {
			return nil, err
		}
		return applyMatrixToKey(key, m, t, mod.Name())

	case augment.KindErasing:
		if key != augment.KeyMask {
			return t, nil
		}
		me, ok := mod.(augment.MaskEraser)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s has erasing kind but cannot erase masks", mod.Name())
		}
		return me.EraseMask(t, item.Data)

	case augment.KindSequential:
		seq, ok := mod.(*Sequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a sequential stage", mod.Name())
		}
		if seq.IntensityOnly() {
			augment.Tracef("forward %s: skipping intensity-only %s", key, mod.Name())
			return t, nil
		}
		var err error
		for _, sub := range item.Items {
			child, cerr := seq.Submodule(sub.Name)
			if cerr != nil {
				return nil, cerr
			}
			if t, err = forwardExtra(key, child, sub, t, hw); err != nil {
				return nil, err
			}
		}
		return t, nil

	case augment.KindVideo:
		v, ok := mod.(*VideoSequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a video stage", mod.Name())
		}
		if v.IntensityOnly() {
			augment.Tracef("forward %s: skipping intensity-only %s", key, mod.Name())
			return t, nil
		}
		step := func(m augment.Module, it augment.ParamItem, x *tensor.Dense) (*tensor.Dense, error) {
			return forwardExtra(key, m, it, x, hw)
		}
		return videoPass(v, item, t, step, false)

	case augment.KindPatch:
		return nil, augment.NewError(augment.ErrCodeNotSupported, "a patch stage cannot carry %s", key)

	default:
		return nil, augment.NewError(augment.ErrCodeConfiguration, "unknown module kind %s", mod.Kind())
	}
}

// inverseExtra undoes one module's pass on a non-image modality.
func inverseExtra(key augment.DataKey, mod augment.Module, item augment.ParamItem, t *tensor.Dense, hw [2]int) (*tensor.Dense, error) {
	switch mod.Kind() {
	case augment.KindIntensity, augment.KindErasing:
		return t, nil

	case augment.KindGeometric:
		g, ok := mod.(augment.Geometric)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s has geometric kind but no matrix", mod.Name())
		}
		m, err := g.Matrix(item.Data, hw)
		if err != nil {
			return nil, err
		}
		inv, err := m.Inverse()
		if err != nil {
			return nil, augment.WrapError(augment.ErrCodeInternal, err, "%s inverse", mod.Name())
		}
		return applyMatrixToKey(key, inv, t, mod.Name())

	case augment.KindSequential:
		seq, ok := mod.(*Sequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a sequential stage", mod.Name())
		}
		if seq.IntensityOnly() {
			augment.Tracef("inverse %s: skipping intensity-only %s", key, mod.Name())
			return t, nil
		}
		var err error
		for i := len(item.Items) - 1; i >= 0; i-- {
			sub := item.Items[i]
			child, cerr := seq.Submodule(sub.Name)
			if cerr != nil {
				return nil, cerr
			}
			if t, err = inverseExtra(key, child, sub, t, hw); err != nil {
				return nil, err
			}
		}
		return t, nil

	case augment.KindVideo:
		v, ok := mod.(*VideoSequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a video stage", mod.Name())
		}
		if v.IntensityOnly() {
			augment.Tracef("inverse %s: skipping intensity-only %s", key, mod.Name())
			return t, nil
		}
		step := func(m augment.Module, it augment.ParamItem, x *tensor.Dense) (*tensor.Dense, error) {
			return inverseExtra(key, m, it, x, hw)
		}
		return videoPass(v, item, t, step, true)

	case augment.KindPatch:
		return nil, augment.NewError(augment.ErrCodeNotSupported, "a patch stage cannot carry %s", key)

	default:
		return nil, augment.NewError(augment.ErrCodeConfiguration, "unknown module kind %s", mod.Kind())
	}
}

// applyMatrixToKey moves one modality under already-built matrices: masks
// resample with nearest-neighbor, box vertices and keypoints transform as
// point sets.
func applyMatrixToKey(key augment.DataKey, m *geometry.Affines, t *tensor.Dense, name string) (*tensor.Dense, error) {
	if key == augment.KeyMask {
		out, err := geometry.WarpAffine(t, m, geometry.InterpNearest)
		if err != nil {
			return nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "%s on mask", name)
		}
		return out, nil
	}
	out, err := m.ApplyPoints(t)
	if err != nil {
		return nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "%s on %s", name, key)
	}
	return out, nil
}

// stepFn advances one modality through one module.
type stepFn func(mod augment.Module, item augment.ParamItem, t *tensor.Dense) (*tensor.Dense, error)

// videoPass folds the time dimension into the batch, runs the stage's
// children over the folded tensor, and restores the clip layout. The
// tensor's frame count must match the one recorded when parameters were
// drawn; parameters were broadcast against exactly that many frames.
func videoPass(v *VideoSequential, item augment.ParamItem, t *tensor.Dense, step stepFn, reverse bool) (*tensor.Dense, error) {
	frames, err := v.Frames(item)
	if err != nil {
		return nil, err
	}
	if t.Dims() < 3 {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "video stage wants a clip batch, got shape %v", t.Shape())
	}
	if t.Dim(1) != frames {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "clip has %d frames, parameters were drawn for %d", t.Dim(1), frames)
	}
	folded, err := t.FoldLeading()
	if err != nil {
		return nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "fold clip")
	}
	// FoldLeading shares its backing array; work on a copy so the caller's
	// tensor stays untouched.
	folded = folded.Clone()

	items := item.Items
	idxs := make([]int, len(items))
	for i := range idxs {
		idxs[i] = i
	}
	if reverse {
		for i, j := 0, len(idxs)-1; i < j; i, j = i+1, j-1 {
			idxs[i], idxs[j] = idxs[j], idxs[i]
		}
	}
	for _, i := range idxs {
		sub := items[i]
		child, err := v.Submodule(sub.Name)
		if err != nil {
			return nil, err
		}
		if folded, err = step(child, sub, folded); err != nil {
			return nil, err
		}
	}
	out, err := folded.UnfoldLeading(frames)
	if err != nil {
		return nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "unfold clip")
	}
	return out, nil
}

// forwardLabel routes the label batch through every stage that mixes
// labels, in the same order the pixels saw.
func forwardLabel(mod augment.Module, item augment.ParamItem, label *tensor.Dense) (*tensor.Dense, error) {
	switch mod.Kind() {
	case augment.KindSequential:
		seq, ok := mod.(*Sequential)
		if !ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "%s is not a sequential stage", mod.Name())
		}
		var err error
		for _, sub := range item.Items {
			child, cerr := seq.Submodule(sub.Name)
			if cerr != nil {
				return nil, cerr
			}
			if label, err = forwardLabel(child, sub, label); err != nil {
				return nil, err
			}
		}
		return label, nil

	case augment.KindVideo, augment.KindPatch:
		// Mixers are rejected inside these stages at construction.
		return label, nil

	default:
		if mixer, ok := mod.(augment.LabelMixer); ok {
			return mixer.MixLabel(label, item.Data)
		}
		return label, nil
	}
}
