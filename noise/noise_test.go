package noise

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gotopology/grid"
	"github.com/richinsley/gotopology/params"
)

func TestFieldInRange(t *testing.T) {
	f := New(params.Default().Noise)
	for y := float32(0); y <= 1; y += 0.05 {
		for x := float32(0); x <= 1; x += 0.05 {
			n := f.Eval(mgl32.Vec2{x, y}, 3)
			if n < 0 || n > 1 {
				t.Fatalf("field at (%v,%v) = %v outside [0,1]", x, y, n)
			}
		}
	}
}

func TestFieldTiles(t *testing.T) {
	cfg := params.Default().Noise
	cfg.Scale = 3
	f := New(cfg)
	for _, v := range []float32{0, 0.3, 0.77} {
		assert.InDelta(t, f.Eval(mgl32.Vec2{0, v}, 0), f.Eval(mgl32.Vec2{1, v}, 0), 1e-5, "left/right edge at v=%v", v)
		assert.InDelta(t, f.Eval(mgl32.Vec2{v, 0}, 0), f.Eval(mgl32.Vec2{v, 1}, 0), 1e-5, "bottom/top edge at u=%v", v)
	}
}

func TestZeroTimeScaleIsStatic(t *testing.T) {
	f := New(params.Default().Noise)
	uv := mgl32.Vec2{0.4, 0.6}
	assert.Equal(t, f.Eval(uv, 0), f.Eval(uv, 100))

	cfg := params.Default().Noise
	cfg.TimeScale = 1
	cfg.Scale = 4
	moving := New(cfg)
	assert.NotEqual(t, moving.Eval(uv, 0), moving.Eval(uv, 0.5))
}

func TestSeedChangesPattern(t *testing.T) {
	a := params.Default().Noise
	b := a
	b.Seed = 7
	a.Scale, b.Scale = 4, 4
	uv := mgl32.Vec2{0.31, 0.52}
	assert.NotEqual(t, New(a).Eval(uv, 0), New(b).Eval(uv, 0))
}

func TestRenderFillsGrid(t *testing.T) {
	g := grid.New(8, 8, grid.Clamp)
	New(params.Default().Noise).Render(g, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px := g.At(x, y)
			assert.Equal(t, px[0], px[1])
			assert.Equal(t, px[0], px[2])
			assert.Equal(t, float32(1), px[3])
		}
	}
}

func TestFallback(t *testing.T) {
	img := Fallback(64, 1)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 64, img.Bounds().Dy())

	distinct := map[uint8]bool{}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := img.RGBAAt(x, y)
			assert.Equal(t, uint8(255), c.A)
			distinct[c.R] = true
		}
	}
	assert.Greater(t, len(distinct), 8, "fallback should not be flat")

	assert.Equal(t, img.Pix, Fallback(64, 1).Pix, "same seed, same image")
	assert.Equal(t, 0, Fallback(0, 1).Bounds().Dx())
}
