package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIndexing(t *testing.T) {
	d := New(2, 3)
	if d.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", d.Size())
	}
	d.Set(5, 1, 2)
	if got := d.At(1, 2); got != 5 {
		t.Errorf("At(1,2) = %v, want 5", got)
	}
	// Row-major layout: element (1,2) is the last of six.
	if got := d.Data()[5]; got != 5 {
		t.Errorf("Data()[5] = %v, want 5", got)
	}
}

func TestFromSlice(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, 2, 2)
	if err == nil {
		t.Fatal("expected error for mismatched element count")
	}

	d, err := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.At(0, 1) != 2 || d.At(1, 0) != 3 {
		t.Errorf("unexpected layout: %v", d.Data())
	}
}

func TestStrides(t *testing.T) {
	d := New(2, 3, 4)
	want := []int{12, 4, 1}
	got := d.Strides()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Strides() = %v, want %v", got, want)
		}
	}
}

func TestReshape(t *testing.T) {
	d := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	r, err := d.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, r.Shape())
	// Shares data.
	r.Set(9, 0, 0)
	assert.Equal(t, float32(9), d.At(0, 0))

	_, err = d.Reshape(4, 2)
	assert.Error(t, err)
}

func TestFoldUnfoldLeading(t *testing.T) {
	d := New(2, 3, 4, 5)

	folded, err := d.FoldLeading()
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4, 5}, folded.Shape())

	back, err := folded.UnfoldLeading(3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, back.Shape())

	_, err = folded.UnfoldLeading(4)
	assert.Error(t, err, "6 not divisible by 4")

	one := New(3)
	_, err = one.FoldLeading()
	assert.Error(t, err)
}

func TestAutofill(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		min     int
		max     int
		want    []int
		wantErr bool
	}{
		{"image CHW to BCHW", []int{3, 5, 6}, 2, 4, []int{1, 3, 5, 6}, false},
		{"already batched", []int{2, 3, 5, 6}, 2, 4, []int{2, 3, 5, 6}, false},
		{"HW to BCHW", []int{5, 6}, 2, 4, []int{1, 1, 5, 6}, false},
		{"too few dims", []int{5}, 2, 4, nil, true},
		{"too many dims", []int{1, 2, 3, 5, 6}, 2, 4, nil, true},
		{"video CTHW to BCTHW", []int{3, 2, 5, 6}, 3, 5, []int{1, 3, 2, 5, 6}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.shape...)
			got, orig, err := d.Autofill(tt.min, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Shape())
			assert.Equal(t, tt.shape, orig)
		})
	}
}

func TestEqual(t *testing.T) {
	a := MustFromSlice([]float32{1, 2, 3, 4}, 2, 2)
	b := MustFromSlice([]float32{1, 2, 3, 4}, 2, 2)
	c := MustFromSlice([]float32{1, 2, 3, 4}, 4)
	d := MustFromSlice([]float32{1, 2, 3, 4.5}, 2, 2)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c), "same data, different shape")
	assert.False(t, Equal(a, d))
	assert.True(t, EqualApprox(a, d, 0.5))
	assert.False(t, EqualApprox(a, d, 0.4))
}
