package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetsEvenlySpaced(t *testing.T) {
	offsets := Offsets(Count)
	require.Len(t, offsets, Count)

	step := float32(1) / Count
	for i, o := range offsets {
		if o <= 0 || o > 1 {
			t.Fatalf("offset %d = %v outside (0,1]", i, o)
		}
		if i > 0 {
			assert.InDelta(t, step, o-offsets[i-1], 1e-6, "spacing at %d", i)
		}
	}
	assert.Equal(t, float32(1), offsets[Count-1])
	assert.Equal(t, step, offsets[0])
	assert.Nil(t, Offsets(0))
}

func TestDepthWraps(t *testing.T) {
	offsets := Offsets(Count)
	for _, elapsed := range []float32{0, 0.25, 1, 3.7, 1234.5678, -2.3} {
		for i, o := range offsets {
			d := Depth(o, elapsed, 1, 0)
			if d < 0 || d >= 1 {
				t.Fatalf("layer %d at t=%v has depth %v outside [0,1)", i, elapsed, d)
			}
		}
	}

	assert.Equal(t, float32(0), Depth(1, 0, 0, 0), "offset 1 wraps to 0")
	assert.InDelta(t, 0.5, Depth(0.25, 0.25, 1, 0), 1e-6)
	assert.InDelta(t, 0.75, Depth(0.5, 0, 0, 0.25), 1e-6)
	assert.InDelta(t, 0.9, Depth(0.1, -0.2, 1, 0), 1e-6)
}
