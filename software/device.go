// Package software is a CPU implementation of pipeline.Device. It runs the
// same pass graph as the GL renderer using float texel grids, so the
// compositor can render headless and be tested without a GPU.
package software

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gotopology/fluid"
	"github.com/richinsley/gotopology/grid"
	"github.com/richinsley/gotopology/layers"
	"github.com/richinsley/gotopology/noise"
	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/pipeline"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/terrain"
	"github.com/richinsley/gotopology/uniforms"
	"github.com/richinsley/gotopology/wave"
)

var errDestroyed = errors.New("resource already destroyed")

var _ pipeline.Device = (*Device)(nil)

type target struct {
	g         *grid.Grid
	destroyed bool
}

func (t *target) Texture() uniforms.Texture { return t }
func (t *target) Size() (int, int)          { return t.g.Size() }
func (t *target) Destroy() error {
	if t.destroyed {
		return errDestroyed
	}
	t.destroyed = true
	return nil
}

type texture struct {
	g         *grid.Grid
	destroyed bool
}

func (t *texture) Size() (int, int) { return t.g.Size() }
func (t *texture) Destroy() error {
	if t.destroyed {
		return errDestroyed
	}
	t.destroyed = true
	return nil
}

type program struct {
	pass      shader.Pass
	destroyed bool
}

func (p *program) Pass() shader.Pass { return p.pass }
func (p *program) Destroy() error {
	if p.destroyed {
		return errDestroyed
	}
	p.destroyed = true
	return nil
}

// Device shades every pass on the CPU.
type Device struct {
	field    *noise.Field
	fieldCfg params.Noise
}

func New() *Device { return &Device{} }

func (d *Device) NewTarget(width, height int) (pipeline.Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return &target{g: grid.New(width, height, grid.Clamp)}, nil
}

// NewScreen needs no depth buffer here: DrawLayers resolves depth by visiting
// layers front to back.
func (d *Device) NewScreen(width, height int) (pipeline.Target, error) {
	return d.NewTarget(width, height)
}

func (d *Device) NewProgram(pass shader.Pass) (pipeline.Program, error) {
	if shader.Fragment(pass) == "" {
		return nil, fmt.Errorf("unknown pass %s", pass)
	}
	return &program{pass: pass}, nil
}

func (d *Device) NewTexture(img image.Image) (pipeline.Texture, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot upload an empty image")
	}
	return &texture{g: grid.FromImage(img, grid.Repeat)}, nil
}

func (d *Device) ReadPixels(t pipeline.Target) (*image.RGBA, error) {
	tg, ok := t.(*target)
	if !ok {
		return nil, fmt.Errorf("target %T does not belong to the software device", t)
	}
	return tg.g.RGBA(), nil
}

// sampler resolves a bound texture to its grid.
func sampler(set *uniforms.Set, name string) (*grid.Grid, error) {
	switch t := set.Texture(name).(type) {
	case *target:
		if t.destroyed {
			return nil, fmt.Errorf("%s: %w", name, errDestroyed)
		}
		return t.g, nil
	case *texture:
		if t.destroyed {
			return nil, fmt.Errorf("%s: %w", name, errDestroyed)
		}
		return t.g, nil
	case nil:
		return nil, fmt.Errorf("%s: %w", name, pipeline.ErrUnboundTexture)
	default:
		return nil, fmt.Errorf("%s: texture %T does not belong to the software device", name, t)
	}
}

func samplers(set *uniforms.Set, names ...string) ([]*grid.Grid, error) {
	out := make([]*grid.Grid, len(names))
	for i, name := range names {
		g, err := sampler(set, name)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

func destination(prog pipeline.Program, set *uniforms.Set, dst pipeline.Target) (*program, *grid.Grid, error) {
	p, ok := prog.(*program)
	if !ok || p.destroyed {
		return nil, nil, fmt.Errorf("invalid program")
	}
	t, ok := dst.(*target)
	if !ok || t.destroyed {
		return nil, nil, fmt.Errorf("invalid target")
	}
	if set.Samples(t) {
		return nil, nil, pipeline.ErrFeedbackLoop
	}
	return p, t.g, nil
}

func (d *Device) Draw(prog pipeline.Program, set *uniforms.Set, dst pipeline.Target) error {
	p, out, err := destination(prog, set, dst)
	if err != nil {
		return err
	}
	texel := set.Vec2("uTexelSize")

	switch p.pass {
	case shader.Noise:
		cfg := params.Noise{
			Seed:        set.Float("uSeed"),
			Scale:       set.Float("uScale"),
			TimeScale:   set.Float("uTimeScale"),
			Offset:      set.Float("uNoiseOffset"),
			Translation: set.Vec2("uNoiseTranslation"),
		}
		if d.field == nil || cfg != d.fieldCfg {
			d.field, d.fieldCfg = noise.New(cfg), cfg
		}
		d.field.Render(out, set.Float("uTime"))

	case shader.Velocity:
		src, err := sampler(set, "tTexture")
		if err != nil {
			return err
		}
		ptr := fluid.Pointer{
			Mouse:     set.Vec2("uMouse"),
			PrevMouse: set.Vec2("uPrevMouse"),
			Velocity:  set.Vec2("uMouseVelocity"),
			Force:     set.Vec2("uForce"),
		}
		radius, pressure := set.Float("uMouseRadius"), set.Float("uPressure")
		out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
			return fluid.Velocity(src, uv, texel, ptr, radius, pressure)
		})

	case shader.Divergence:
		vel, err := sampler(set, "uVelocity")
		if err != nil {
			return err
		}
		viscosity := set.Float("uViscosity")
		out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
			v := fluid.Divergence(vel, uv, texel, viscosity)
			return mgl32.Vec4{v, v, v, v}
		})

	case shader.Pressure:
		g, err := samplers(set, "tTexture", "uDivergence")
		if err != nil {
			return err
		}
		alpha, beta := set.Float("uAlpha"), set.Float("uBeta")
		out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
			v := fluid.Pressure(g[0], g[1], uv, texel, alpha, beta)
			return mgl32.Vec4{v, v, v, v}
		})

	case shader.Gradient:
		g, err := samplers(set, "uPressure", "uVelocity")
		if err != nil {
			return err
		}
		out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
			return fluid.Gradient(g[0], g[1], uv, texel)
		})

	case shader.Wave:
		tex, err := sampler(set, "uNoiseTex")
		if err != nil {
			return err
		}
		w := pipeline.WaveFromSet(set)
		f := wave.Frame{
			Time:   set.Float("uTime"),
			Scroll: set.Float("uScroll"),
			Mouse:  set.Vec2("uMouse"),
		}
		out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
			return wave.Shade(uv, f, w, tex).Vec4(1)
		})

	default:
		return fmt.Errorf("%s is not a fullscreen pass", p.pass)
	}
	return nil
}

// DrawLayers shades every pixel by visiting the layers nearest first and
// keeping the first one that survives, which is what the depth test does on
// the GPU.
func (d *Device) DrawLayers(prog pipeline.Program, set *uniforms.Set, offsets []float32, dst pipeline.Target) error {
	p, out, err := destination(prog, set, dst)
	if err != nil {
		return err
	}
	if p.pass != shader.Terrain {
		return fmt.Errorf("%s is not a layered pass", p.pass)
	}
	g, err := samplers(set, "tHeightNoise", "tNoise", "tFluid")
	if err != nil {
		return err
	}

	t, pal := pipeline.TerrainFromSet(set)
	m := &terrain.Material{
		HeightNoise: g[0],
		Noise:       g[1],
		Fluid:       g[2],
		Terrain:     t,
		Palette:     pal,
		Time:        set.Float("uTime"),
		LightPos:    t.LightPos,
		Resolution:  set.Vec2("uResolution"),
	}
	if m.Resolution[0] <= 0 || m.Resolution[1] <= 0 {
		w, h := out.Size()
		m.Resolution = mgl32.Vec2{float32(w), float32(h)}
	}

	depths := make([]float32, len(offsets))
	for i, o := range offsets {
		depths[i] = layers.Depth(o, m.Time, t.CycleSpeed, t.CycleOffset)
	}
	sort.Slice(depths, func(i, j int) bool { return depths[i] > depths[j] })

	w, h := out.Size()
	size := mgl32.Vec2{float32(w), float32(h)}
	out.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
		f := terrain.Fragment{UV: uv, FragCoord: mgl32.Vec2{uv[0] * size[0], uv[1] * size[1]}}
		for _, depth := range depths {
			f.Depth = depth
			if c, ok := m.Shade(f); ok {
				return c.Vec4(1)
			}
		}
		return mgl32.Vec4{}
	})
	return nil
}
