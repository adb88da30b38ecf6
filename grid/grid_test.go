package grid

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestWrapModes(t *testing.T) {
	g := New(4, 2, Clamp)
	g.Set(0, 0, mgl32.Vec4{1, 0, 0, 1})
	g.Set(3, 1, mgl32.Vec4{0, 1, 0, 1})

	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, g.At(-5, -5))
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, g.At(10, 10))

	g.Wrap = Repeat
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, g.At(4, 2))
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, g.At(-1, -1))
}

func TestSampleIsBilinear(t *testing.T) {
	g := New(2, 1, Clamp)
	g.Set(0, 0, mgl32.Vec4{0, 0, 0, 0})
	g.Set(1, 0, mgl32.Vec4{1, 1, 1, 1})

	// texel centres return exact values
	assert.InDelta(t, 0, g.Sample(mgl32.Vec2{0.25, 0.5})[0], 1e-6)
	assert.InDelta(t, 1, g.Sample(mgl32.Vec2{0.75, 0.5})[0], 1e-6)
	// midway blends
	assert.InDelta(t, 0.5, g.Sample(mgl32.Vec2{0.5, 0.5})[0], 1e-6)
	// clamped beyond the edge
	assert.InDelta(t, 1, g.Sample(mgl32.Vec2{2, 0.5})[0], 1e-6)
}

func TestFillUsesTexelCentres(t *testing.T) {
	g := New(4, 4, Clamp)
	g.Fill(func(uv mgl32.Vec2) mgl32.Vec4 { return mgl32.Vec4{uv[0], uv[1], 0, 1} })
	assert.Equal(t, mgl32.Vec4{0.125, 0.125, 0, 1}, g.At(0, 0))
	assert.Equal(t, mgl32.Vec4{0.875, 0.375, 0, 1}, g.At(3, 1))
}

func TestImageRoundTripFlips(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255}) // top-left

	g := FromImage(img, Repeat)
	assert.InDelta(t, 1, g.At(0, 1)[0], 1e-6, "top row of the image is v=1")
	assert.InDelta(t, 0, g.At(0, 0)[0], 1e-6)

	out := g.RGBA()
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 0}, out.RGBAAt(1, 1))
}

func TestClear(t *testing.T) {
	g := New(3, 3, Clamp)
	g.Clear(mgl32.Vec4{0.5, 0.5, 0.5, 1})
	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 1}, g.At(2, 2))
	w, h := g.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 3, h)
}
