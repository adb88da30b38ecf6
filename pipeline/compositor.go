package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/richinsley/gotopology/assets"
	"github.com/richinsley/gotopology/input"
	"github.com/richinsley/gotopology/layers"
	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

type state int

const (
	created state = iota
	opened
	closed
)

type destroyer interface {
	Destroy() error
}

// Compositor owns every device resource of the topology background and runs
// one frame of the pass graph per call to Frame. It is not safe for
// concurrent use; drive it from the render thread.
type Compositor struct {
	dev     Device
	params  params.Params
	palette params.Palette
	loader  *assets.Loader

	width, height int
	state         state

	programs   map[shader.Pass]Program
	noise      Target
	velocity   *PingPong
	divergence Target
	pressure   *PingPong
	screen     Target
	noiseImg   *noiseImage
	owned      []destroyer // in acquisition order, screen and noiseImg excluded

	sets    map[shader.Pass]*uniforms.Set
	offsets []float32
	lastPtr mgl32.Vec2
}

// New prepares a compositor for a width×height viewport. It validates p but
// acquires nothing until Open.
func New(dev Device, p params.Params, width, height int) (*Compositor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pal, err := p.Terrain.Palette()
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	return &Compositor{
		dev:      dev,
		params:   p,
		palette:  pal,
		width:    width,
		height:   height,
		programs: make(map[shader.Pass]Program),
		offsets:  layers.Offsets(p.Terrain.Layers),
		lastPtr:  mgl32.Vec2{-1, -1},
	}, nil
}

// UseLoader sets the loader used for the external noise image. Without one,
// Open uses a default loader when Asset.NoiseURL is set.
func (c *Compositor) UseLoader(l *assets.Loader) { c.loader = l }

// Open acquires programs, targets and the fallback noise texture, and starts
// fetching the external noise image. On failure everything acquired so far is
// released.
func (c *Compositor) Open(ctx context.Context) (err error) {
	switch c.state {
	case opened:
		return nil
	case closed:
		return ErrClosed
	}

	defer func() {
		if err != nil {
			err = multierr.Append(err, c.release())
		}
	}()

	for _, pass := range shader.Passes {
		prog, err := c.dev.NewProgram(pass)
		if err != nil {
			return fmt.Errorf("failed to create %s program: %w", pass, err)
		}
		c.programs[pass] = prog
		c.owned = append(c.owned, prog)
	}

	ns := c.params.Noise.Size
	if c.noise, err = c.dev.NewTarget(ns, ns); err != nil {
		return fmt.Errorf("failed to create noise target: %w", err)
	}
	c.owned = append(c.owned, c.noise)

	ss := c.params.Fluid.SimSize
	if c.velocity, err = NewPingPong(c.dev, ss, ss); err != nil {
		return fmt.Errorf("velocity: %w", err)
	}
	c.owned = append(c.owned, c.velocity)
	if c.divergence, err = c.dev.NewTarget(ss, ss); err != nil {
		return fmt.Errorf("failed to create divergence target: %w", err)
	}
	c.owned = append(c.owned, c.divergence)
	if c.pressure, err = NewPingPong(c.dev, ss, ss); err != nil {
		return fmt.Errorf("pressure: %w", err)
	}
	c.owned = append(c.owned, c.pressure)

	if c.screen, err = c.dev.NewScreen(c.width, c.height); err != nil {
		return fmt.Errorf("failed to create screen target: %w", err)
	}

	if c.noiseImg, err = openNoiseImage(ctx, c.dev, c.params.Asset, c.loader); err != nil {
		return err
	}

	c.sets = newSets(c.params, c.palette, c.width, c.height)
	c.bindStatic()

	c.state = opened
	log.Printf("Compositor opened: %d layers, %dx%d viewport, %d² simulation", len(c.offsets), c.width, c.height, ss)
	return nil
}

// bindStatic binds the textures whose identity never changes between frames.
func (c *Compositor) bindStatic() {
	t := c.sets[shader.Terrain]
	t.SetTexture("tHeightNoise", c.noise.Texture())
	t.SetTexture("tNoise", c.noiseImg.tex)
}

// Frame renders one frame at elapsed time t (seconds) with the given input.
func (c *Compositor) Frame(t float32, in input.Snapshot) error {
	switch c.state {
	case created:
		return ErrNotOpen
	case closed:
		return ErrClosed
	}

	if c.noiseImg.poll() {
		c.sets[shader.Terrain].SetTexture("tNoise", c.noiseImg.tex)
	}

	n := c.sets[shader.Noise]
	n.SetFloat("uTime", t)
	if err := c.draw(shader.Noise, c.noise); err != nil {
		return err
	}

	c.setPointer(in)
	v := c.sets[shader.Velocity]
	v.SetTexture("tTexture", c.velocity.Read().Texture())
	if err := c.draw(shader.Velocity, c.velocity.Write()); err != nil {
		return err
	}

	c.sets[shader.Divergence].SetTexture("uVelocity", c.velocity.Write().Texture())
	if err := c.draw(shader.Divergence, c.divergence); err != nil {
		return err
	}

	pr := c.sets[shader.Pressure]
	pr.SetTexture("tTexture", c.pressure.Read().Texture())
	pr.SetTexture("uDivergence", c.divergence.Texture())
	if err := c.draw(shader.Pressure, c.pressure.Write()); err != nil {
		return err
	}

	// gradient writes back into the velocity read target, which is the next
	// frame's advection input
	g := c.sets[shader.Gradient]
	g.SetTexture("uPressure", c.pressure.Write().Texture())
	g.SetTexture("uVelocity", c.velocity.Write().Texture())
	if err := c.draw(shader.Gradient, c.velocity.Read()); err != nil {
		return err
	}
	c.pressure.Swap()

	ts := c.sets[shader.Terrain]
	ts.SetTexture("tFluid", c.velocity.Read().Texture())
	ts.SetFloat("uTime", t)
	s := mgl32.Clamp(in.Scroll, 0, 1)
	ts.SetFloat("uHeight", c.params.Terrain.Height+s*c.params.Scroll.HeightGain)
	ts.SetFloat("uCycleSpeed", c.params.Terrain.CycleSpeed+s*c.params.Scroll.CycleSpeedGain)
	if in.Moved {
		ts.SetVec2("uLightPos", mgl32.Vec2{-in.Pointer[0], in.Pointer[1]})
	}
	if err := c.check(shader.Terrain, c.screen); err != nil {
		return err
	}
	return c.dev.DrawLayers(c.programs[shader.Terrain], ts, c.offsets, c.screen)
}

// setPointer maps the input snapshot onto the velocity pass. The impulse is
// only applied on frames where the pointer actually moved.
func (c *Compositor) setPointer(in input.Snapshot) {
	v := c.sets[shader.Velocity]
	if !in.Moved {
		v.SetVec2("uForce", mgl32.Vec2{})
		return
	}
	v.SetVec2("uMouse", in.Pointer)
	v.SetVec2("uPrevMouse", in.PrevPointer)
	v.SetVec2("uMouseVelocity", in.Velocity)
	if in.Pointer == c.lastPtr {
		v.SetVec2("uForce", mgl32.Vec2{})
	} else {
		v.SetVec2("uForce", in.Velocity.Mul(c.params.Fluid.ForceScale))
	}
	c.lastPtr = in.Pointer
}

func (c *Compositor) check(pass shader.Pass, dst Target) error {
	return checkSet(pass, c.sets[pass], dst)
}

// checkSet rejects a draw with an unbound sampler or one that samples its own
// destination.
func checkSet(pass shader.Pass, set *uniforms.Set, dst Target) error {
	if unbound := set.Unbound(); len(unbound) > 0 {
		return fmt.Errorf("%s pass: %w: %s", pass, ErrUnboundTexture, strings.Join(unbound, ", "))
	}
	if set.Samples(dst.Texture()) {
		return fmt.Errorf("%s pass: %w", pass, ErrFeedbackLoop)
	}
	return nil
}

func (c *Compositor) draw(pass shader.Pass, dst Target) error {
	if err := c.check(pass, dst); err != nil {
		return err
	}
	if err := c.dev.Draw(c.programs[pass], c.sets[pass], dst); err != nil {
		return fmt.Errorf("%s pass: %w", pass, err)
	}
	return nil
}

// UsingFallback reports whether the procedural noise texture is still bound.
func (c *Compositor) UsingFallback() bool { return c.noiseImg != nil && c.noiseImg.fallback }

// Resize recreates the screen target for a new viewport. Simulation targets
// keep their fixed resolution. Zero sizes, as reported for a minimised
// window, are ignored.
func (c *Compositor) Resize(width, height int) error {
	if c.state == closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 || (width == c.width && height == c.height) {
		return nil
	}
	if c.state != opened {
		c.width, c.height = width, height
		return nil
	}

	screen, err := c.dev.NewScreen(width, height)
	if err != nil {
		return fmt.Errorf("failed to resize screen target: %w", err)
	}
	c.width, c.height = width, height
	if err := c.screen.Destroy(); err != nil {
		log.Printf("Failed to release old screen target: %v", err)
	}
	c.screen = screen
	c.sets[shader.Terrain].SetVec2("uResolution", mgl32.Vec2{float32(width), float32(height)})
	return nil
}

// Output is the target the terrain is drawn into. It changes on Resize.
func (c *Compositor) Output() Target { return c.screen }

// Size is the current viewport size.
func (c *Compositor) Size() (int, int) { return c.width, c.height }

// Uniforms exposes a pass's uniform set for inspection.
func (c *Compositor) Uniforms(pass shader.Pass) *uniforms.Set { return c.sets[pass] }

// Close cancels the noise fetch and releases every resource once. Later calls
// do nothing and return nil.
func (c *Compositor) Close() error {
	if c.state == closed {
		return nil
	}
	c.state = closed
	err := c.release()
	log.Println("Compositor closed")
	return err
}

// release frees resources in reverse acquisition order.
func (c *Compositor) release() error {
	var err error
	if c.noiseImg != nil {
		err = multierr.Append(err, c.noiseImg.Destroy())
		c.noiseImg = nil
	}
	if c.screen != nil {
		err = multierr.Append(err, c.screen.Destroy())
		c.screen = nil
	}
	for i := len(c.owned) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.owned[i].Destroy())
	}
	c.owned = nil
	c.programs = make(map[shader.Pass]Program)
	c.noise, c.velocity, c.divergence, c.pressure = nil, nil, nil, nil
	return err
}
