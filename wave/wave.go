// Package wave is the CPU form of the rainbow wave background: concentric
// waves coloured through a rainbow, grained by the noise image, rotated and
// scaled by scroll and shifted by the pointer.
package wave

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gotopology/glsl"
	"github.com/richinsley/gotopology/params"
)

// twoPi matches the constant the fragment shader uses for the rainbow phase.
const twoPi = 6.2831

var (
	luma         = mgl32.Vec3{0.299, 0.587, 0.114}
	rainbowPhase = mgl32.Vec3{0, 0.33, 0.66}
)

// Sampler is a filtered texture lookup with repeat wrap.
type Sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec4
}

// Frame is what changes between frames. Scroll is normalized to [0,1] and
// Mouse is the normalized pointer.
type Frame struct {
	Time   float32
	Scroll float32
	Mouse  mgl32.Vec2
}

// Position maps a texture coordinate into the rotated, scaled and
// parallax-shifted plane the waves radiate in.
func Position(uv mgl32.Vec2, f Frame, w params.Wave) mgl32.Vec2 {
	p := uv.Sub(mgl32.Vec2{0.5, 0.5})
	angle := f.Scroll * w.Rotation * 2 * math32.Pi
	s, c := math32.Sincos(angle)
	p = mgl32.Vec2{c*p[0] + s*p[1], -s*p[0] + c*p[1]}
	p = p.Mul(1 + f.Scroll*w.ScaleGain)
	return p.Add(f.Mouse.Sub(mgl32.Vec2{0.5, 0.5}).Mul(w.Parallax))
}

// Shade returns the opaque colour at uv.
func Shade(uv mgl32.Vec2, f Frame, w params.Wave, noise Sampler) mgl32.Vec3 {
	r := Position(uv, f, w).Len()
	t := 0.5 + 0.5*math32.Sin(w.Frequency*r-f.Time*w.Speed)

	var rainbow mgl32.Vec3
	for i := range rainbow {
		rainbow[i] = 0.5 + 0.5*math32.Sin(twoPi*(t+rainbowPhase[i]))
	}

	nuv := mgl32.Vec2{
		uv[0]*w.NoiseScale + f.Time*w.NoiseDrift[0],
		uv[1]*w.NoiseScale + f.Scroll*w.NoiseDrift[1],
	}
	grain := noise.Sample(nuv).Vec3()
	color := glsl.Mix3(rainbow, mgl32.Vec3{rainbow[0] * grain[0], rainbow[1] * grain[1], rainbow[2] * grain[2]}, w.Grain)

	color = color.Mul(glsl.Smoothstep(w.Vignette[0], w.Vignette[1], r))

	g := color.Dot(luma)
	return glsl.Mix3(mgl32.Vec3{g, g, g}, color, w.Saturation)
}
