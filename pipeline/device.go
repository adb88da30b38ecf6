// Package pipeline runs the topology frame graph on a Device: the noise pass,
// the four fluid passes and the instanced terrain draw.
package pipeline

import (
	"errors"
	"image"

	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

var (
	ErrClosed         = errors.New("compositor is closed")
	ErrNotOpen        = errors.New("compositor is not open")
	ErrFeedbackLoop   = errors.New("draw target is also bound as a texture")
	ErrUnboundTexture = errors.New("sampler has no texture bound")
)

// Target is an offscreen float RGBA render target.
type Target interface {
	Texture() uniforms.Texture
	Size() (int, int)
	Destroy() error
}

// Texture is an image uploaded to the device. It samples with linear
// filtering and repeat wrap.
type Texture interface {
	uniforms.Texture
	Destroy() error
}

// Program is a compiled pass.
type Program interface {
	Pass() shader.Pass
	Destroy() error
}

// Device executes passes. The GL renderer and the software rasterizer both
// implement it.
type Device interface {
	// NewTarget creates a float target sampled with linear filtering and
	// clamp-to-edge wrap.
	NewTarget(width, height int) (Target, error)
	// NewScreen creates the viewport-sized target the terrain is drawn into.
	// It carries a depth buffer.
	NewScreen(width, height int) (Target, error)
	NewProgram(pass shader.Pass) (Program, error)
	NewTexture(img image.Image) (Texture, error)

	// Draw runs a fullscreen pass over dst.
	Draw(prog Program, set *uniforms.Set, dst Target) error
	// DrawLayers draws one instance of the terrain per layer offset into dst,
	// clearing colour and depth first.
	DrawLayers(prog Program, set *uniforms.Set, offsets []float32, dst Target) error

	// ReadPixels returns the contents of t, top row first.
	ReadPixels(t Target) (*image.RGBA, error)
}
