package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/gotopology/pipeline"
	"github.com/richinsley/gotopology/uniforms"
)

var errDestroyed = errors.New("resource already destroyed")

// target is a framebuffer with a float colour texture and, for the screen,
// a depth renderbuffer. It is its own texture handle.
type target struct {
	fbo       uint32
	textureID uint32
	depth     uint32
	width     int
	height    int
	destroyed bool
}

func (t *target) Texture() uniforms.Texture { return t }
func (t *target) Size() (int, int)          { return t.width, t.height }

func (t *target) Destroy() error {
	if t.destroyed {
		return errDestroyed
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.textureID)
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
	}
	t.destroyed = true
	return nil
}

func newTarget(width, height int, withDepth bool) (*target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	t := &target{width: width, height: height}

	gl.GenTextures(1, &t.textureID)
	gl.BindTexture(gl.TEXTURE_2D, t.textureID)
	// Float storage keeps signed velocities and pressures intact.
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.textureID, 0)

	if withDepth {
		gl.GenRenderbuffers(1, &t.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(width), int32(height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status == gl.FRAMEBUFFER_COMPLETE {
		// storage starts undefined; the solver reads last frame's fields
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0, 0, 0, 0)
		gl.ClearDepth(1)
		gl.Clear(clearMask(withDepth))
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Destroy()
		return nil, fmt.Errorf("framebuffer %dx%d is not complete (0x%x)", width, height, status)
	}
	return t, nil
}

// clearMask is the buffers a freshly created target is zeroed through.
func clearMask(withDepth bool) uint32 {
	if withDepth {
		return gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT
	}
	return gl.COLOR_BUFFER_BIT
}

// texture is an uploaded image, sampled with repeat wrap.
type texture struct {
	textureID uint32
	width     int
	height    int
	destroyed bool
}

func (t *texture) Size() (int, int) { return t.width, t.height }

func (t *texture) Destroy() error {
	if t.destroyed {
		return errDestroyed
	}
	gl.DeleteTextures(1, &t.textureID)
	t.destroyed = true
	return nil
}

func (r *Renderer) NewTarget(width, height int) (pipeline.Target, error) {
	return newTarget(width, height, false)
}

func (r *Renderer) NewScreen(width, height int) (pipeline.Target, error) {
	return newTarget(width, height, true)
}

// NewTexture uploads img bottom row first, so v=0 is the bottom of the image
// as in every other texture the passes sample.
func (r *Renderer) NewTexture(img image.Image) (pipeline.Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot upload an empty image")
	}
	rgba := vflip(toRGBA(img))
	width, height := rgba.Rect.Dx(), rgba.Rect.Dy()

	t := &texture{width: width, height: height}
	gl.GenTextures(1, &t.textureID)
	gl.BindTexture(gl.TEXTURE_2D, t.textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

// UpdateTexture replaces the contents of t with img, which must have the same
// size.
func (r *Renderer) UpdateTexture(t pipeline.Texture, img image.Image) error {
	tx, ok := t.(*texture)
	if !ok || tx.destroyed {
		return fmt.Errorf("invalid texture")
	}
	rgba := vflip(toRGBA(img))
	if rgba.Rect.Dx() != tx.width || rgba.Rect.Dy() != tx.height {
		return fmt.Errorf("image is %dx%d, texture is %dx%d", rgba.Rect.Dx(), rgba.Rect.Dy(), tx.width, tx.height)
	}
	gl.BindTexture(gl.TEXTURE_2D, tx.textureID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(tx.width), int32(tx.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// ReadPixels reads t back as 8-bit RGBA, top row first.
func (r *Renderer) ReadPixels(t pipeline.Target) (*image.RGBA, error) {
	tg, ok := t.(*target)
	if !ok || tg.destroyed {
		return nil, fmt.Errorf("invalid target")
	}
	img := image.NewRGBA(image.Rect(0, 0, tg.width, tg.height))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, tg.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(tg.width), int32(tg.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return vflip(img), nil
}

// textureID resolves a bound texture to its GL name.
func textureID(name string, t uniforms.Texture) (uint32, error) {
	switch t := t.(type) {
	case *target:
		if t.destroyed {
			return 0, fmt.Errorf("%s: %w", name, errDestroyed)
		}
		return t.textureID, nil
	case *texture:
		if t.destroyed {
			return 0, fmt.Errorf("%s: %w", name, errDestroyed)
		}
		return t.textureID, nil
	case nil:
		return 0, fmt.Errorf("%s: %w", name, pipeline.ErrUnboundTexture)
	default:
		return 0, fmt.Errorf("%s: texture %T does not belong to the GL renderer", name, t)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// vflip returns a vertically flipped copy of src.
func vflip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}
