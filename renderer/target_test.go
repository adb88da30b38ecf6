package renderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
)

func TestClearMask(t *testing.T) {
	assert.Equal(t, uint32(gl.COLOR_BUFFER_BIT), clearMask(false))
	assert.Equal(t, uint32(gl.COLOR_BUFFER_BIT|gl.DEPTH_BUFFER_BIT), clearMask(true))
}

func TestVflip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 2, color.RGBA{B: 255, A: 255})

	flipped := vflip(img)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, flipped.RGBAAt(0, 2))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, flipped.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{}, flipped.RGBAAt(0, 0))
}

func TestToRGBAKeepsPackedImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, img, toRGBA(img))

	sub := img.SubImage(image.Rect(1, 1, 3, 3))
	packed := toRGBA(sub)
	assert.NotSame(t, img, packed)
	assert.Equal(t, image.Rect(0, 0, 2, 2), packed.Rect)
}
