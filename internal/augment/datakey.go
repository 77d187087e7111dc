package augment

import (
	"github.com/tessellate-ml/augment/internal/geometry"
)

// DataKey tags each tensor handed to a pipeline with its modality, so the
// dispatcher knows which transforms apply and how coordinates move.
type DataKey int

const (
	// KeyInput is the image batch, (B, C, H, W), or (B, T, C, H, W) when
	// the pipeline contains a video stage.
	KeyInput DataKey = iota
	// KeyMask is a dense label map warped alongside the image with
	// nearest-neighbor sampling and never touched by intensity changes.
	KeyMask
	// KeyBBox is a bounding-box batch given as four corner vertices,
	// (B, 4, 2) or (B, N, 4, 2).
	KeyBBox
	// KeyBBoxXYXY is a bounding-box batch given as (x1, y1, x2, y2).
	KeyBBoxXYXY
	// KeyBBoxXYWH is a bounding-box batch given as (x, y, width, height).
	KeyBBoxXYWH
	// KeyKeypoints is a point batch, (B, 2) or (B, N, 2).
	KeyKeypoints
)

var dataKeyNames = map[DataKey]string{
	KeyInput:     "input",
	KeyMask:      "mask",
	KeyBBox:      "bbox",
	KeyBBoxXYXY:  "bbox_xyxy",
	KeyBBoxXYWH:  "bbox_xywh",
	KeyKeypoints: "keypoints",
}

func (k DataKey) String() string {
	if s, ok := dataKeyNames[k]; ok {
		return s
	}
	return "datakey(?)"
}

// Valid reports whether k is one of the known modalities.
func (k DataKey) Valid() bool {
	_, ok := dataKeyNames[k]
	return ok
}

// ParseDataKey maps a modality name to its DataKey.
func ParseDataKey(s string) (DataKey, error) {
	for k, name := range dataKeyNames {
		if name == s {
			return k, nil
		}
	}
	return 0, NewError(ErrCodeUnsupportedModality, "unknown data key %q", s)
}

// IsBox reports whether the key names one of the box encodings.
func (k DataKey) IsBox() bool {
	return k == KeyBBox || k == KeyBBoxXYXY || k == KeyBBoxXYWH
}

// BoxMode returns the box encoding for a box key.
func (k DataKey) BoxMode() (geometry.BoxMode, bool) {
	switch k {
	case KeyBBox:
		return geometry.ModeVertices, true
	case KeyBBoxXYXY:
		return geometry.ModeXYXY, true
	case KeyBBoxXYWH:
		return geometry.ModeXYWH, true
	default:
		return 0, false
	}
}
