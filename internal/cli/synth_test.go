package cli

import (
	"reflect"
	"testing"

	"github.com/tessellate-ml/augment/internal/augment"
)

func TestCanonicalShape(t *testing.T) {
	if got := canonicalShape(4, 32, 48, false); !reflect.DeepEqual(got, []int{4, 3, 32, 48}) {
		t.Errorf("flat shape = %v, want [4 3 32 48]", got)
	}
	if got := canonicalShape(2, 8, 8, true); !reflect.DeepEqual(got, []int{2, synthFrames, 3, 8, 8}) {
		t.Errorf("video shape = %v", got)
	}
}

func TestSyntheticInputs(t *testing.T) {
	keys := []augment.DataKey{
		augment.KeyInput, augment.KeyMask, augment.KeyBBox,
		augment.KeyBBoxXYXY, augment.KeyBBoxXYWH, augment.KeyKeypoints,
	}
	ins, err := syntheticInputs(keys, []int{2, 3, 16, 16})
	if err != nil {
		t.Fatalf("syntheticInputs failed: %v", err)
	}
	if len(ins) != len(keys) {
		t.Fatalf("expected %d inputs, got %d", len(keys), len(ins))
	}

	want := map[augment.DataKey][]int{
		augment.KeyInput:     {2, 3, 16, 16},
		augment.KeyMask:      {2, 1, 16, 16},
		augment.KeyBBox:      {2, 4, 2},
		augment.KeyBBoxXYXY:  {2, 4},
		augment.KeyBBoxXYWH:  {2, 4},
		augment.KeyKeypoints: {2, 3, 2},
	}
	for _, in := range ins {
		if !reflect.DeepEqual(in.T.Shape(), want[in.Key]) {
			t.Errorf("%s shape = %v, want %v", in.Key, in.T.Shape(), want[in.Key])
		}
	}
}

func TestSyntheticInputsVideo(t *testing.T) {
	ins, err := syntheticInputs(
		[]augment.DataKey{augment.KeyInput, augment.KeyMask, augment.KeyBBox},
		[]int{1, 2, 3, 8, 8},
	)
	if err != nil {
		t.Fatalf("syntheticInputs failed: %v", err)
	}

	want := map[augment.DataKey][]int{
		augment.KeyInput: {1, 2, 3, 8, 8},
		augment.KeyMask:  {1, 2, 1, 8, 8},
		augment.KeyBBox:  {1, 2, 4, 2},
	}
	for _, in := range ins {
		if !reflect.DeepEqual(in.T.Shape(), want[in.Key]) {
			t.Errorf("%s shape = %v, want %v", in.Key, in.T.Shape(), want[in.Key])
		}
	}
}

func TestSyntheticInputsBadShape(t *testing.T) {
	if _, err := syntheticInputs([]augment.DataKey{augment.KeyInput}, []int{3, 8, 8}); err == nil {
		t.Error("expected an error for a rank-3 shape")
	}
}

func TestTileTensorRepeatsElement(t *testing.T) {
	tl := tileTensor([]float32{1, 2}, []int{3, 2})
	want := []float32{1, 2, 1, 2, 1, 2}
	if !reflect.DeepEqual(tl.Data(), want) {
		t.Errorf("tiled data = %v, want %v", tl.Data(), want)
	}
}

func TestBoxHelpers(t *testing.T) {
	if got := boxVertices(8, 16); !reflect.DeepEqual(got, []float32{4, 2, 12, 2, 12, 6, 4, 6}) {
		t.Errorf("boxVertices = %v", got)
	}
	if got := boxXYXY(8, 16); !reflect.DeepEqual(got, []float32{4, 2, 12, 6}) {
		t.Errorf("boxXYXY = %v", got)
	}
	if got := boxXYWH(8, 16); !reflect.DeepEqual(got, []float32{4, 2, 8, 4}) {
		t.Errorf("boxXYWH = %v", got)
	}
}
