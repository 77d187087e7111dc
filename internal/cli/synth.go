package cli

import (
	"fmt"

	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/augment/container"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// synthFrames is the clip length used for synthetic video batches.
const synthFrames = 2

// canonicalShape builds the canonical image shape for synthetic batches:
// (B, 3, H, W), or (B, T, 3, H, W) when the pipeline has a video stage.
func canonicalShape(batch, h, w int, video bool) []int {
	if video {
		return []int{batch, synthFrames, 3, h, w}
	}
	return []int{batch, 3, h, w}
}

// syntheticInputs builds one deterministic tensor per pipeline key, sized
// from the canonical image shape. Every element carries the same geometry,
// so differences after a pass come from the draws alone.
func syntheticInputs(keys []augment.DataKey, shape []int) ([]container.Input, error) {
	if len(shape) != 4 && len(shape) != 5 {
		return nil, fmt.Errorf("canonical image shape must be rank 4 or 5, got %v", shape)
	}
	h, w := shape[len(shape)-2], shape[len(shape)-1]
	lead := shape[: len(shape)-3 : len(shape)-3]

	ins := make([]container.Input, 0, len(keys))
	for _, key := range keys {
		var t *tensor.Dense
		switch key {
		case augment.KeyInput:
			t = rampTensor(shape...)
		case augment.KeyMask:
			t = labelTensor(append(lead, 1, h, w)...)
		case augment.KeyBBox:
			t = tileTensor(boxVertices(h, w), append(lead, 4, 2))
		case augment.KeyBBoxXYXY:
			t = tileTensor(boxXYXY(h, w), append(lead, 4))
		case augment.KeyBBoxXYWH:
			t = tileTensor(boxXYWH(h, w), append(lead, 4))
		case augment.KeyKeypoints:
			t = tileTensor(keypointTriple(h, w), append(lead, 3, 2))
		default:
			return nil, fmt.Errorf("no synthetic data for key %q", key)
		}
		ins = append(ins, container.In(key, t))
	}
	return ins, nil
}

func rampTensor(shape ...int) *tensor.Dense {
	t := tensor.New(shape...)
	data := t.Data()
	for i := range data {
		data[i] = float32(i%97) / 96
	}
	return t
}

func labelTensor(shape ...int) *tensor.Dense {
	t := tensor.New(shape...)
	data := t.Data()
	for i := range data {
		data[i] = float32(i % 5)
	}
	return t
}

// tileTensor repeats one element's values across all leading positions.
func tileTensor(elem []float32, shape []int) *tensor.Dense {
	t := tensor.New(shape...)
	data := t.Data()
	for i := 0; i < len(data); i += len(elem) {
		copy(data[i:], elem)
	}
	return t
}

// boxVertices is a quarter-inset box as four corners.
func boxVertices(h, w int) []float32 {
	x1, y1 := float32(w)/4, float32(h)/4
	x2, y2 := 3*float32(w)/4, 3*float32(h)/4
	return []float32{x1, y1, x2, y1, x2, y2, x1, y2}
}

func boxXYXY(h, w int) []float32 {
	return []float32{float32(w) / 4, float32(h) / 4, 3 * float32(w) / 4, 3 * float32(h) / 4}
}

func boxXYWH(h, w int) []float32 {
	return []float32{float32(w) / 4, float32(h) / 4, float32(w) / 2, float32(h) / 2}
}

// keypointTriple marks the center plus two off-center landmarks.
func keypointTriple(h, w int) []float32 {
	return []float32{
		float32(w) / 2, float32(h) / 2,
		float32(w) / 4, float32(h) / 4,
		3 * float32(w) / 4, float32(h) / 3,
	}
}
