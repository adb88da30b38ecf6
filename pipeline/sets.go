package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

// Terrain camera: orthographic over [-1,1]², looking down -z from z=1, so a
// layer's depth in [0,1) moves it towards the camera.
var (
	terrainProjection = mgl32.Ortho(-1, 1, -1, 1, 0, 10)
	terrainModelView  = mgl32.LookAtV(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
)

// newSets builds the static part of every pass's uniform set. Samplers are
// declared unbound; Frame binds them.
func newSets(p params.Params, pal params.Palette, width, height int) map[shader.Pass]*uniforms.Set {
	sets := make(map[shader.Pass]*uniforms.Set, len(shader.Passes))
	for _, pass := range shader.Passes {
		s := uniforms.NewSet()
		for _, name := range pass.Samplers() {
			s.Declare(name)
		}
		sets[pass] = s
	}

	noiseSize := float32(p.Noise.Size)
	simSize := float32(p.Fluid.SimSize)
	texel := mgl32.Vec2{1 / simSize, 1 / simSize}

	n := sets[shader.Noise]
	n.SetVec2("uResolution", mgl32.Vec2{noiseSize, noiseSize})
	n.SetFloat("uSeed", p.Noise.Seed)
	n.SetFloat("uTime", 0)
	n.SetFloat("uScale", p.Noise.Scale)
	n.SetFloat("uTimeScale", p.Noise.TimeScale)
	n.SetFloat("uNoiseOffset", p.Noise.Offset)
	n.SetVec2("uNoiseTranslation", p.Noise.Translation)

	for _, pass := range []shader.Pass{shader.Velocity, shader.Divergence, shader.Pressure, shader.Gradient} {
		sets[pass].SetVec2("uResolution", mgl32.Vec2{simSize, simSize})
		sets[pass].SetVec2("uTexelSize", texel)
	}

	v := sets[shader.Velocity]
	v.SetVec2("uForce", mgl32.Vec2{})
	v.SetVec2("uMouse", mgl32.Vec2{-1, -1})
	v.SetVec2("uPrevMouse", mgl32.Vec2{-1, -1})
	v.SetVec2("uMouseVelocity", mgl32.Vec2{})
	v.SetFloat("uMouseRadius", p.Fluid.MouseRadius)
	v.SetFloat("uPressure", p.Fluid.Pressure)

	sets[shader.Divergence].SetFloat("uViscosity", p.Fluid.Viscosity)

	pr := sets[shader.Pressure]
	pr.SetFloat("uAlpha", p.Fluid.Alpha)
	pr.SetFloat("uBeta", p.Fluid.Beta)

	setTerrain(sets[shader.Terrain], p.Terrain, pal)
	sets[shader.Terrain].SetVec2("uResolution", mgl32.Vec2{float32(width), float32(height)})
	return sets
}

func setTerrain(s *uniforms.Set, t params.Terrain, pal params.Palette) {
	s.SetMat4("uProjection", terrainProjection)
	s.SetMat4("uModelView", terrainModelView)
	s.SetFloat("uTime", 0)
	s.SetFloat("uCycleOffset", t.CycleOffset)
	s.SetFloat("uCycleSpeed", t.CycleSpeed)

	s.SetBool("uFluidEnabled", t.FluidEnabled)
	s.SetBool("uFluidEdgeEnabled", t.FluidEdgeEnabled)
	s.SetFloat("uFluidStrength", t.FluidStrength)
	s.SetFloat("uEdgeStrength", t.EdgeStrength)

	for i, name := range colorNames {
		s.SetVec3(name, pal.Stops[i])
		s.SetFloat(colorStepNames[i], t.ColorSteps[i])
	}
	s.SetVec2("uColorHeightRange", t.ColorHeightRange)
	s.SetFloat("uColorNoiseStrength", t.ColorNoiseStrength)
	s.SetFloat("uColorNoiseScale", t.ColorNoiseScale)
	s.SetFloat("uColorNoiseRandomDepth", t.ColorNoiseRandomDepth)

	s.SetVec3("uShadowColor", pal.Shadow)
	s.SetFloat("uShadowStrength", t.ShadowStrength)
	s.SetVec2("uShadowRange", t.ShadowRange)
	s.SetFloat("uShadowOffset", t.ShadowOffset)

	s.SetVec3("uLightColor", pal.Light)
	s.SetVec2("uLightRange", t.LightRange)
	s.SetFloat("uLightOffset", t.LightOffset)
	s.SetFloat("uLightStrength", t.LightStrength)
	s.SetFloat("uLightShininess", t.LightShininess)
	s.SetVec2("uLightPos", t.LightPos)

	s.SetFloat("uDepthOffset", t.DepthOffset)
	s.SetFloat("uHeight", t.Height)
	s.SetFloat("uHeightNoiseSpeed", t.HeightNoiseSpeed)
	s.SetFloat("uHeightNoiseStrength", t.HeightNoiseStrength)
	s.SetFloat("uHeightNoiseScale", t.HeightNoiseScale)
	s.SetFloat("uLineNoiseStrength", t.LineNoiseStrength)
	s.SetBool("uIsFooter", t.IsFooter)
}

var (
	colorNames     = [5]string{"uColor1", "uColor2", "uColor3", "uColor4", "uColor5"}
	colorStepNames = [5]string{"uColorStep1", "uColorStep2", "uColorStep3", "uColorStep4", "uColorStep5"}
)

// TerrainFromSet reads the terrain uniforms back into parameter form. It is
// the inverse of the set the compositor uploads, for devices that shade on
// the CPU.
func TerrainFromSet(s *uniforms.Set) (params.Terrain, params.Palette) {
	var t params.Terrain
	var pal params.Palette
	t.CycleOffset = s.Float("uCycleOffset")
	t.CycleSpeed = s.Float("uCycleSpeed")
	t.FluidEnabled = s.Bool("uFluidEnabled")
	t.FluidEdgeEnabled = s.Bool("uFluidEdgeEnabled")
	t.FluidStrength = s.Float("uFluidStrength")
	t.EdgeStrength = s.Float("uEdgeStrength")
	for i := range colorNames {
		pal.Stops[i] = s.Vec3(colorNames[i])
		t.ColorSteps[i] = s.Float(colorStepNames[i])
	}
	t.ColorHeightRange = s.Vec2("uColorHeightRange")
	pal.Shadow = s.Vec3("uShadowColor")
	t.ShadowStrength = s.Float("uShadowStrength")
	t.ShadowRange = s.Vec2("uShadowRange")
	t.ShadowOffset = s.Float("uShadowOffset")
	pal.Light = s.Vec3("uLightColor")
	t.LightRange = s.Vec2("uLightRange")
	t.LightOffset = s.Float("uLightOffset")
	t.LightStrength = s.Float("uLightStrength")
	t.LightShininess = s.Float("uLightShininess")
	t.LightPos = s.Vec2("uLightPos")
	t.DepthOffset = s.Float("uDepthOffset")
	t.Height = s.Float("uHeight")
	t.HeightNoiseSpeed = s.Float("uHeightNoiseSpeed")
	t.HeightNoiseStrength = s.Float("uHeightNoiseStrength")
	t.HeightNoiseScale = s.Float("uHeightNoiseScale")
	t.LineNoiseStrength = s.Float("uLineNoiseStrength")
	t.IsFooter = s.Bool("uIsFooter")
	return t, pal
}

// newWaveSet builds the uniform set of the wave pass with the noise sampler
// declared unbound.
func newWaveSet(w params.Wave, width, height int) *uniforms.Set {
	s := uniforms.NewSet()
	for _, name := range shader.Wave.Samplers() {
		s.Declare(name)
	}
	s.SetVec2("uResolution", mgl32.Vec2{float32(width), float32(height)})
	s.SetFloat("uTime", 0)
	s.SetFloat("uScroll", 0)
	s.SetVec2("uMouse", mgl32.Vec2{0.5, 0.5})
	s.SetFloat("uFrequency", w.Frequency)
	s.SetFloat("uSpeed", w.Speed)
	s.SetFloat("uRotation", w.Rotation)
	s.SetFloat("uScaleGain", w.ScaleGain)
	s.SetFloat("uParallax", w.Parallax)
	s.SetFloat("uNoiseScale", w.NoiseScale)
	s.SetVec2("uNoiseDrift", w.NoiseDrift)
	s.SetFloat("uGrain", w.Grain)
	s.SetVec2("uVignette", w.Vignette)
	s.SetFloat("uSaturation", w.Saturation)
	return s
}

// WaveFromSet reads the wave constants back from the set newWaveSet built.
func WaveFromSet(s *uniforms.Set) params.Wave {
	return params.Wave{
		Frequency:  s.Float("uFrequency"),
		Speed:      s.Float("uSpeed"),
		Rotation:   s.Float("uRotation"),
		ScaleGain:  s.Float("uScaleGain"),
		Parallax:   s.Float("uParallax"),
		NoiseScale: s.Float("uNoiseScale"),
		NoiseDrift: s.Vec2("uNoiseDrift"),
		Grain:      s.Float("uGrain"),
		Vignette:   s.Vec2("uVignette"),
		Saturation: s.Float("uSaturation"),
	}
}
