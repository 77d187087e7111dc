// Package container composes transforms into pipelines: ordered
// sequences, per-frame video stages, patch grids, and the multi-modality
// Pipeline that dispatches images, masks, boxes and keypoints through
// them under one parameter ledger.
package container

import (
	"fmt"

	"github.com/tessellate-ml/augment/internal/augment"
)

// Container is a module holding other modules. Containers sample their
// whole subtree into one ParamItem and resolve recorded child names back
// to modules during dispatch.
type Container interface {
	augment.Module
	// ParamsTree draws parameters for every child this pass will run and
	// returns them as one item, Name left for the parent to fill in.
	ParamsTree(shape []int, s *augment.Sampler) (augment.ParamItem, error)
	// Submodule resolves a recorded child name like "RandomRotation_2".
	Submodule(name string) (augment.Module, error)
	// IntensityOnly reports whether nothing in the subtree moves
	// coordinates or erases regions.
	IntensityOnly() bool
	// HasLabelMixer reports whether the subtree rewrites labels.
	HasLabelMixer() bool
}

// SequentialConfig configures child selection per pass.
type SequentialConfig struct {
	RandomApply int  // Run only this many randomly chosen children per pass; 0 runs all
	RandomOrder bool // Shuffle child order per pass
}

// Sequential runs its children in order. With RandomApply or RandomOrder
// set, the selection drawn for a pass is recorded in the ledger, so
// replays and inversions see the exact sequence that ran.
type Sequential struct {
	cfg      SequentialConfig
	children []augment.Module
	names    []string
	byName   map[string]augment.Module
}

// NewSequential validates the children and builds the container. Children
// may be leaf transforms or other containers; video stages are only valid
// directly under a Pipeline, where the time dimension is still around.
func NewSequential(cfg SequentialConfig, children ...augment.Module) (*Sequential, error) {
	return newSequential(cfg, false, children...)
}

func newSequential(cfg SequentialConfig, allowVideo bool, children ...augment.Module) (*Sequential, error) {
	if len(children) == 0 {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "sequential needs at least one child")
	}
	if cfg.RandomApply < 0 || cfg.RandomApply > len(children) {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "random apply %d out of range for %d children", cfg.RandomApply, len(children))
	}
	q := &Sequential{
		cfg:      cfg,
		children: children,
		names:    make([]string, len(children)),
		byName:   make(map[string]augment.Module, len(children)),
	}
	for i, c := range children {
		switch c.(type) {
		case Container:
			if c.Kind() == augment.KindVideo && !allowVideo {
				return nil, augment.NewError(augment.ErrCodeConfiguration, "video stage %s must sit directly under the pipeline", c.Name())
			}
		case augment.Transform:
		default:
			return nil, augment.NewError(augment.ErrCodeConfiguration, "child %d (%s) is neither a transform nor a container", i, c.Name())
		}
		q.names[i] = fmt.Sprintf("%s_%d", c.Name(), i)
		q.byName[q.names[i]] = c
	}
	return q, nil
}

func (q *Sequential) Name() string       { return "Sequential" }
func (q *Sequential) Kind() augment.Kind { return augment.KindSequential }

// Children returns the child modules in construction order.
func (q *Sequential) Children() []augment.Module { return q.children }

// ChildName returns the recorded name of child i.
func (q *Sequential) ChildName(i int) string { return q.names[i] }

// Submodule resolves a recorded child name.
func (q *Sequential) Submodule(name string) (augment.Module, error) {
	if m, ok := q.byName[name]; ok {
		return m, nil
	}
	return nil, augment.NewError(augment.ErrCodeConfiguration, "no child named %q", name)
}

// IntensityOnly reports whether every child, recursively, only changes
// pixel values. Dispatchers skip intensity-only subtrees for every
// modality but the image.
func (q *Sequential) IntensityOnly() bool {
	for _, c := range q.children {
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

// HasLabelMixer reports whether any child, recursively, rewrites labels.
func (q *Sequential) HasLabelMixer() bool {
	for _, c := range q.children {
		if _, ok := c.(augment.LabelMixer); ok {
			return true
		}
		if m, ok := c.(Container); ok && m.HasLabelMixer() {
			return true
		}
	}
	return false
}

// passOrder draws the child indices this pass runs, honoring RandomApply
// and RandomOrder.
func (q *Sequential) passOrder(s *augment.Sampler) []int {
	n := len(q.children)
	switch {
	case q.cfg.RandomApply > 0:
		return s.Perm(n)[:q.cfg.RandomApply]
	case q.cfg.RandomOrder:
		return s.Perm(n)
	default:
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
}

// ParamsTree draws this pass's child selection and each child's
// parameters, in execution order.
func (q *Sequential) ParamsTree(shape []int, s *augment.Sampler) (augment.ParamItem, error) {
	order := q.passOrder(s)
	item := augment.ParamItem{Items: make([]augment.ParamItem, 0, len(order))}
	for _, idx := range order {
		child := q.children[idx]
		switch m := child.(type) {
		case Container:
			sub, err := m.ParamsTree(shape, s)
			if err != nil {
				return augment.ParamItem{}, err
			}
			sub.Name = q.names[idx]
			item.Items = append(item.Items, sub)
		case augment.Transform:
			pm, err := m.Params(shape, s)
			if err != nil {
				return augment.ParamItem{}, err
			}
			item.Items = append(item.Items, augment.ParamItem{Name: q.names[idx], Data: pm})
		default:
			return augment.ParamItem{}, augment.NewError(augment.ErrCodeConfiguration, "child %s is neither a transform nor a container", child.Name())
		}
	}
	return item, nil
}

// subtreeContains reports whether m or anything below it has one of the
// given kinds. Containers expose Children for this walk.
func subtreeContains(m augment.Module, kinds ...augment.Kind) bool {
	for _, k := range kinds {
		if m.Kind() == k {
			return true
		}
	}
	if c, ok := m.(interface{ Children() []augment.Module }); ok {
		for _, ch := range c.Children() {
			if subtreeContains(ch, kinds...) {
				return true
			}
		}
	}
	return false
}
