// Package fluid is the CPU form of the four solver passes: advection with
// pointer impulse, divergence, one Jacobi pressure relaxation and gradient
// subtraction. Each function computes a single texel at uv, exactly like the
// fragment shader it mirrors.
package fluid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gotopology/glsl"
)

// Sampler is a filtered texture lookup at normalized coordinates.
type Sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec4
}

// Pointer is the pointer state injected by the velocity pass.
type Pointer struct {
	Mouse     mgl32.Vec2
	PrevMouse mgl32.Vec2
	Velocity  mgl32.Vec2
	Force     mgl32.Vec2
}

// SdLine is the distance from p to segment ab, divided by the pointer speed
// clamped to [0.5, 1.5] so fast strokes leave a wider trail.
func SdLine(p, a, b, velocity mgl32.Vec2) float32 {
	speed := mgl32.Clamp(velocity.Len(), 0.5, 1.5)
	pa, ba := p.Sub(a), b.Sub(a)
	// a zero-length segment degenerates to the distance to a
	var h float32
	if d := ba.Dot(ba); d > 0 {
		h = mgl32.Clamp(pa.Dot(ba)/d, 0, 1)
	}
	return pa.Sub(ba.Mul(h)).Len() / speed
}

// Velocity self-advects the field, adds the pointer impulse along the pointer
// path and damps by pressure. Every component is clamped to [-1,1], which is
// the only bound on the solver.
func Velocity(tex Sampler, uv, texel mgl32.Vec2, ptr Pointer, radius, pressure float32) mgl32.Vec4 {
	v := tex.Sample(uv)
	back := uv.Sub(mgl32.Vec2{v[0] * texel[0], v[1] * texel[1]})
	color := tex.Sample(back)

	d := 1 - min(SdLine(uv, ptr.PrevMouse, ptr.Mouse, ptr.Velocity), 1)
	dir := glsl.Smoothstep(1-radius, 1, d)

	impulse := mgl32.Vec4{ptr.Force[0] * dir, ptr.Force[1] * dir, 0, 1}
	return glsl.ClampVec4(color.Add(impulse).Mul(pressure), -1, 1)
}

// Divergence is the central-difference divergence of the velocity field,
// scaled by viscosity.
func Divergence(vel Sampler, uv, texel mgl32.Vec2, viscosity float32) float32 {
	x0 := vel.Sample(uv.Sub(mgl32.Vec2{texel[0], 0}))[0]
	x1 := vel.Sample(uv.Add(mgl32.Vec2{texel[0], 0}))[0]
	y0 := vel.Sample(uv.Sub(mgl32.Vec2{0, texel[1]}))[1]
	y1 := vel.Sample(uv.Add(mgl32.Vec2{0, texel[1]}))[1]
	return (x1 - x0 + y1 - y0) * viscosity
}

// Pressure is one Jacobi relaxation step.
func Pressure(pres, div Sampler, uv, texel mgl32.Vec2, alpha, beta float32) float32 {
	x0 := pres.Sample(uv.Sub(mgl32.Vec2{texel[0], 0}))[0]
	x1 := pres.Sample(uv.Add(mgl32.Vec2{texel[0], 0}))[0]
	y0 := pres.Sample(uv.Sub(mgl32.Vec2{0, texel[1]}))[0]
	y1 := pres.Sample(uv.Add(mgl32.Vec2{0, texel[1]}))[0]
	b := div.Sample(uv)[0]
	return (x0 + x1 + y0 + y1 + alpha*b) * beta
}

// Gradient subtracts half the central-difference pressure gradient from the
// velocity. The result is the next frame's velocity input.
func Gradient(pres, vel Sampler, uv, texel mgl32.Vec2) mgl32.Vec4 {
	x0 := pres.Sample(uv.Sub(mgl32.Vec2{texel[0], 0}))[0]
	x1 := pres.Sample(uv.Add(mgl32.Vec2{texel[0], 0}))[0]
	y0 := pres.Sample(uv.Sub(mgl32.Vec2{0, texel[1]}))[0]
	y1 := pres.Sample(uv.Add(mgl32.Vec2{0, texel[1]}))[0]
	v := vel.Sample(uv)
	return mgl32.Vec4{v[0] - (x1-x0)*0.5, v[1] - (y1-y0)*0.5, 1, 1}
}
