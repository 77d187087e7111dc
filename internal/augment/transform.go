// Package augment holds the augmentation primitives: data keys, the
// parameter ledger, the random samplers, and the leaf transforms that
// containers in augment/container compose into pipelines.
package augment

import (
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// Kind classifies a module for dispatch. The set is closed: dispatchers
// switch over every constant and treat anything else as a configuration
// error rather than guessing.
type Kind int

const (
	// KindIntensity changes pixel values only. Masks, boxes and keypoints
	// pass through untouched, and inversion is the identity.
	KindIntensity Kind = iota
	// KindGeometric moves coordinates. All modalities follow the same
	// matrix, and inversion applies the inverse matrix.
	KindGeometric
	// KindErasing blanks out regions. Pixels and masks are erased, box
	// and keypoint coordinates stay put, and inversion is the identity.
	KindErasing
	// KindSequential is an ordered container of other modules.
	KindSequential
	// KindVideo is a container that folds a leading time dimension away,
	// runs its children per frame with shared parameters, and restores it.
	KindVideo
	// KindPatch is a container that runs its children on a grid of image
	// patches. It acts on pixels only.
	KindPatch
)

func (k Kind) String() string {
	switch k {
	case KindIntensity:
		return "intensity"
	case KindGeometric:
		return "geometric"
	case KindErasing:
		return "erasing"
	case KindSequential:
		return "sequential"
	case KindVideo:
		return "video"
	case KindPatch:
		return "patch"
	default:
		return "kind(?)"
	}
}

// Module is anything a container can hold: a leaf Transform or another
// container. Containers assert the concrete capability they need and
// reject modules that provide neither.
type Module interface {
	// Name identifies the module type, e.g. "RandomRotation". Containers
	// suffix it with the child index when recording parameters.
	Name() string
	// Kind drives dispatch.
	Kind() Kind
}

// Transform is a leaf augmentation. Params draws every random decision for
// one batch up front; Apply then deterministically transforms pixels under
// those parameters. shape is the canonical (B, C, H, W) the batch will
// arrive in.
type Transform interface {
	Module
	Params(shape []int, s *Sampler) (ParamMap, error)
	Apply(img *tensor.Dense, p ParamMap) (*tensor.Dense, error)
}

// Geometric is implemented by transforms that move coordinates. The
// matrix maps source to destination pixel coordinates for an image of the
// given size; masks, boxes and keypoints are carried by it. Interp names
// the kernel the transform resamples pixels with, so inversion can use
// the same one.
type Geometric interface {
	Transform
	Matrix(p ParamMap, hw [2]int) (*geometry.Affines, error)
	Interp() geometry.Interp
}

// LabelMixer is implemented by transforms that rewrite labels alongside
// pixels, like mixup. Pipelines route the label batch through it.
type LabelMixer interface {
	MixLabel(label *tensor.Dense, p ParamMap) (*tensor.Dense, error)
}

// MaskEraser is implemented by erasing transforms that must blank the
// same regions on dense masks as on pixels.
type MaskEraser interface {
	EraseMask(mask *tensor.Dense, p ParamMap) (*tensor.Dense, error)
}
