package container

import (
	"fmt"

	"github.com/tessellate-ml/augment/internal/augment"
)

// VideoSequential runs its children on clip batches laid out as
// (B, T, C, H, W). Parameters are drawn once per clip and broadcast to
// every frame, so a clip is augmented coherently; the dispatcher folds
// the time dimension into the batch around each pass and validates it
// against the frame count recorded in the ledger.
type VideoSequential struct {
	children []augment.Module
	names    []string
	byName   map[string]augment.Module
}

// NewVideoSequential validates the children and builds the stage.
// Children may be leaf transforms or plain sequences; nested video or
// patch stages and label mixers are rejected, since neither has a
// coherent meaning once the time dimension is folded away.
func NewVideoSequential(children ...augment.Module) (*VideoSequential, error) {
	if len(children) == 0 {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "video stage needs at least one child")
	}
	v := &VideoSequential{
		children: children,
		names:    make([]string, len(children)),
		byName:   make(map[string]augment.Module, len(children)),
	}
	for i, c := range children {
		if subtreeContains(c, augment.KindVideo, augment.KindPatch) {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "cannot nest a video or patch stage inside a video stage")
		}
		if _, ok := c.(augment.LabelMixer); ok {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "label mixing inside a video stage is not defined")
		}
		if m, ok := c.(Container); ok && m.HasLabelMixer() {
			return nil, augment.NewError(augment.ErrCodeConfiguration, "label mixing inside a video stage is not defined")
		}
		v.names[i] = fmt.Sprintf("%s_%d", c.Name(), i)
		v.byName[v.names[i]] = c
	}
	return v, nil
}

func (v *VideoSequential) Name() string       { return "VideoSequential" }
func (v *VideoSequential) Kind() augment.Kind { return augment.KindVideo }

// Children returns the child modules in construction order.
func (v *VideoSequential) Children() []augment.Module { return v.children }

// Submodule resolves a recorded child name.
func (v *VideoSequential) Submodule(name string) (augment.Module, error) {
	if m, ok := v.byName[name]; ok {
		return m, nil
	}
	return nil, augment.NewError(augment.ErrCodeConfiguration, "no child named %q", name)
}

// IntensityOnly reports whether every child only changes pixel values.
func (v *VideoSequential) IntensityOnly() bool {
	for _, c := range v.children {
		switch m := c.(type) {
		case Container:
			if !m.IntensityOnly() {
				return false
			}
		case augment.Module:
			if m.Kind() != augment.KindIntensity {
				return false
			}
		}
	}
	return true
}

// HasLabelMixer is always false; construction rejects mixers.
func (v *VideoSequential) HasLabelMixer() bool { return false }

// ParamsTree samples children against the per-frame shape (B, C, H, W)
// and repeats every drawn value across the T frames of each clip, then
// records the frame count so dispatch can check the clip it later folds.
func (v *VideoSequential) ParamsTree(shape []int, s *augment.Sampler) (augment.ParamItem, error) {
	if len(shape) != 5 {
		return augment.ParamItem{}, augment.NewError(augment.ErrCodeShapeMismatch, "video stage samples against (B, T, C, H, W), got %v", shape)
	}
	b, t := shape[0], shape[1]
	frameShape := []int{b, shape[2], shape[3], shape[4]}

	item := augment.ParamItem{
		Data:  augment.ParamMap{"frames": []float64{float64(t)}},
		Items: make([]augment.ParamItem, 0, len(v.children)),
	}
	for i, child := range v.children {
		switch m := child.(type) {
		case Container:
			sub, err := m.ParamsTree(frameShape, s)
			if err != nil {
				return augment.ParamItem{}, err
			}
			sub.Name = v.names[i]
			if err := repeatTree(&sub, b, t); err != nil {
				return augment.ParamItem{}, err
			}
			item.Items = append(item.Items, sub)
		case augment.Transform:
			pm, err := m.Params(frameShape, s)
			if err != nil {
				return augment.ParamItem{}, err
			}
			rep, err := pm.Repeat(b, t)
			if err != nil {
				return augment.ParamItem{}, err
			}
			item.Items = append(item.Items, augment.ParamItem{Name: v.names[i], Data: rep})
		default:
			return augment.ParamItem{}, augment.NewError(augment.ErrCodeConfiguration, "child %s is neither a transform nor a container", child.Name())
		}
	}
	return item, nil
}

// Frames reads the frame count recorded in a video stage's item.
func (v *VideoSequential) Frames(item augment.ParamItem) (int, error) {
	f, err := item.Data.Scalar("frames")
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// repeatTree broadcasts every parameter map in a subtree from batch to
// batch*times elements.
func repeatTree(item *augment.ParamItem, batch, times int) error {
	if item.Data != nil {
		rep, err := item.Data.Repeat(batch, times)
		if err != nil {
			return err
		}
		item.Data = rep
	}
	for i := range item.Items {
		if err := repeatTree(&item.Items[i], batch, times); err != nil {
			return err
		}
	}
	return nil
}
