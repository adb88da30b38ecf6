// Package terrain shades the instanced terrain layers. Shade is the CPU form
// of the terrain fragment shader: it either discards a fragment or returns
// its opaque colour.
package terrain

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gotopology/glsl"
	"github.com/richinsley/gotopology/params"
)

const (
	// Layers deeper than this skip the occlusion test and get no shadow or
	// highlight.
	frontDepth = 0.94
	// The occlusion sample looks this far above the layer, against a
	// threshold raised by occlusionLift.
	occlusionStep = 0.05
	occlusionLift = 0.1
	footerDepth   = 0.06
	rimWidth      = 0.002
	rimGain       = 0.05
	// aastepWidth is the half-width of the anti-aliased threshold.
	aastepWidth = 0.00001
)

// Sampler is a filtered texture lookup at normalized coordinates.
type Sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec4
}

// Material is everything a terrain fragment reads: the three textures and
// the per-frame uniforms. Terrain.Height and Terrain.CycleSpeed are expected
// to already carry the scroll mapping. The colour strings in Terrain are
// ignored; Palette holds the parsed colours.
type Material struct {
	HeightNoise Sampler
	Noise       Sampler
	Fluid       Sampler

	Terrain    params.Terrain
	Palette    params.Palette
	Time       float32
	LightPos   mgl32.Vec2
	Resolution mgl32.Vec2
}

// Fragment is one rasterized sample of one layer.
type Fragment struct {
	UV        mgl32.Vec2
	FragCoord mgl32.Vec2 // window pixel centre
	Depth     float32    // cyclic layer depth in [0,1), also the world z
}

func aastep(value, threshold float32) float32 {
	return glsl.Smoothstep(threshold-aastepWidth, threshold+aastepWidth, value)
}

func mapRange(v, a, b, c, d float32) float32 {
	return c + (d-c)*((v-a)/(b-a))
}

// fluidStrength is how far the local fluid speed lowers the height field.
func (m *Material) fluidStrength(fragCoord mgl32.Vec2) float32 {
	t := &m.Terrain
	if !t.FluidEnabled || m.Fluid == nil {
		return 0
	}
	uv := mgl32.Vec2{fragCoord[0] / m.Resolution[0], fragCoord[1] / m.Resolution[1]}
	vel := m.Fluid.Sample(uv)
	speed := math32.Abs(vel[0]) + math32.Abs(vel[1])
	if t.FluidEdgeEnabled {
		return speed * t.EdgeStrength
	}
	return speed * t.FluidStrength
}

// Shade returns the colour of f, or false when the fragment is discarded.
// A layer survives where the height field, lowered by the layer's depth and
// the fluid, crosses Height, and where a sample slightly above it does not
// cross a raised threshold. That sample approximates "only the top layer is
// visible"; the depth test settles the rest.
func (m *Material) Shade(f Fragment) (mgl32.Vec3, bool) {
	t := &m.Terrain
	layerOffset := f.Depth * t.DepthOffset

	drift := m.Time * t.HeightNoiseSpeed
	nuv := f.UV.Mul(t.HeightNoiseScale).Add(mgl32.Vec2{drift, drift})
	nz := m.Noise.Sample(nuv)
	uv := f.UV.Add(mgl32.Vec2{nz[0], nz[1]}.Mul(t.HeightNoiseStrength))

	fluid := m.fluidStrength(f.FragCoord)
	sample := func(at mgl32.Vec2, layer float32) float32 {
		return m.HeightNoise.Sample(at)[0] - layer - fluid
	}

	if f.Depth < frontDepth {
		above := aastep(sample(uv, layerOffset+occlusionStep), t.Height+occlusionLift)
		if above > 0.01 {
			return mgl32.Vec3{}, false
		}
	}

	shape := sample(uv, layerOffset)
	n := aastep(shape, t.Height)
	if t.IsFooter && f.Depth < footerDepth {
		n = 1
	}
	if n < 0.999 {
		return mgl32.Vec3{}, false
	}

	// shadow falls away from the light, highlight towards it
	shadowDir := glsl.Normalize2(m.LightPos.Mul(-1))
	sh := m.HeightNoise.Sample(uv.Sub(shadowDir.Mul(t.ShadowOffset)))[0] - layerOffset
	shadow := glsl.Smoothstep(t.Height+t.ShadowRange[0], t.Height+t.ShadowRange[1], sh) * t.ShadowStrength
	if f.Depth > frontDepth {
		shadow = 0
	}

	pal := &m.Palette
	steps := t.ColorSteps
	dist := mapRange(f.Depth, t.ColorHeightRange[0], t.ColorHeightRange[1], 0, 1)
	c := glsl.Mix3(pal.Stops[0], pal.Stops[1], glsl.Smoothstep(steps[0], steps[1], dist))
	c = glsl.Mix3(c, pal.Stops[2], glsl.Smoothstep(steps[1], steps[2], dist))
	c = glsl.Mix3(c, pal.Stops[3], glsl.Smoothstep(steps[2], steps[3], dist))
	c = glsl.Mix3(c, pal.Stops[4], glsl.Smoothstep(steps[3], steps[4], dist*0.2))
	c = c.Add(c.Mul(glsl.Smoothstep(t.Height+rimWidth, t.Height, shape) * rimGain))

	lightDir := glsl.Normalize2(m.LightPos)
	hl := m.HeightNoise.Sample(uv.Sub(lightDir.Mul(t.LightOffset)))[0] - layerOffset
	highlight := glsl.Smoothstep(t.Height+t.LightRange[0], t.Height+t.LightRange[1], hl)
	if f.Depth > frontDepth {
		highlight = 0
	}
	c = c.Add(pal.Light.Mul(math32.Pow(highlight, t.LightShininess) * t.LightStrength))
	return glsl.Mix3(c, pal.Shadow, shadow), true
}
