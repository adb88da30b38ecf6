package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/richinsley/gotopology/assets"
	"github.com/richinsley/gotopology/input"
	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

// Wave owns the resources of the rainbow wave background: one program, the
// viewport target and the noise image. Like Compositor it is driven from the
// render thread.
type Wave struct {
	dev    Device
	params params.Params
	loader *assets.Loader

	width, height int
	state         state

	prog     Program
	screen   Target
	noiseImg *noiseImage
	set      *uniforms.Set
}

// NewWave prepares a wave effect for a width×height viewport. Nothing is
// acquired until Open.
func NewWave(dev Device, p params.Params, width, height int) (*Wave, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	return &Wave{dev: dev, params: p, width: width, height: height}, nil
}

// UseLoader sets the loader used for the external noise image.
func (w *Wave) UseLoader(l *assets.Loader) { w.loader = l }

// Open acquires the program, the viewport target and the fallback noise, and
// starts the noise fetch. On failure everything acquired so far is released.
func (w *Wave) Open(ctx context.Context) (err error) {
	switch w.state {
	case opened:
		return nil
	case closed:
		return ErrClosed
	}

	defer func() {
		if err != nil {
			err = multierr.Append(err, w.release())
		}
	}()

	if w.prog, err = w.dev.NewProgram(shader.Wave); err != nil {
		return fmt.Errorf("failed to create %s program: %w", shader.Wave, err)
	}
	if w.screen, err = w.dev.NewTarget(w.width, w.height); err != nil {
		return fmt.Errorf("failed to create screen target: %w", err)
	}
	if w.noiseImg, err = openNoiseImage(ctx, w.dev, w.params.Asset, w.loader); err != nil {
		return err
	}

	w.set = newWaveSet(w.params.Wave, w.width, w.height)
	w.set.SetTexture("uNoiseTex", w.noiseImg.tex)

	w.state = opened
	log.Printf("Wave opened: %dx%d viewport", w.width, w.height)
	return nil
}

// Frame renders one frame at elapsed time t (seconds).
func (w *Wave) Frame(t float32, in input.Snapshot) error {
	switch w.state {
	case created:
		return ErrNotOpen
	case closed:
		return ErrClosed
	}

	if w.noiseImg.poll() {
		w.set.SetTexture("uNoiseTex", w.noiseImg.tex)
	}
	w.set.SetFloat("uTime", t)
	w.set.SetFloat("uScroll", mgl32.Clamp(in.Scroll, 0, 1))
	w.set.SetVec2("uMouse", in.Pointer)

	if err := checkSet(shader.Wave, w.set, w.screen); err != nil {
		return err
	}
	if err := w.dev.Draw(w.prog, w.set, w.screen); err != nil {
		return fmt.Errorf("%s pass: %w", shader.Wave, err)
	}
	return nil
}

// Resize recreates the viewport target. Zero and unchanged sizes are ignored,
// and a failed resize keeps the previous target and size.
func (w *Wave) Resize(width, height int) error {
	if w.state == closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 || (width == w.width && height == w.height) {
		return nil
	}
	if w.state != opened {
		w.width, w.height = width, height
		return nil
	}

	screen, err := w.dev.NewTarget(width, height)
	if err != nil {
		return fmt.Errorf("failed to resize screen target: %w", err)
	}
	w.width, w.height = width, height
	if err := w.screen.Destroy(); err != nil {
		log.Printf("Failed to release old screen target: %v", err)
	}
	w.screen = screen
	w.set.SetVec2("uResolution", mgl32.Vec2{float32(width), float32(height)})
	return nil
}

// Output is the target the wave is drawn into. It changes on Resize.
func (w *Wave) Output() Target { return w.screen }

// Size is the current viewport size.
func (w *Wave) Size() (int, int) { return w.width, w.height }

// Uniforms exposes the wave pass's uniform set.
func (w *Wave) Uniforms() *uniforms.Set { return w.set }

// UsingFallback reports whether the procedural noise texture is still bound.
func (w *Wave) UsingFallback() bool { return w.noiseImg != nil && w.noiseImg.fallback }

// Close releases every resource once. Later calls return nil.
func (w *Wave) Close() error {
	if w.state == closed {
		return nil
	}
	w.state = closed
	err := w.release()
	log.Println("Wave closed")
	return err
}

func (w *Wave) release() error {
	var err error
	if w.noiseImg != nil {
		err = multierr.Append(err, w.noiseImg.Destroy())
		w.noiseImg = nil
	}
	if w.screen != nil {
		err = multierr.Append(err, w.screen.Destroy())
		w.screen = nil
	}
	if w.prog != nil {
		err = multierr.Append(err, w.prog.Destroy())
		w.prog = nil
	}
	return err
}
