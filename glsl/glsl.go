// Package glsl provides the GLSL built-ins the CPU passes need, with the same
// semantics as the shading language.
package glsl

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Smoothstep is GLSL smoothstep. Reversed edges (e0 > e1) are allowed and
// produce a falling step; equal edges give a hard step at e0.
func Smoothstep(e0, e1, x float32) float32 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := mgl32.Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func Mix(a, b, t float32) float32 { return a + (b-a)*t }

func Mix3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Fract is x - floor(x).
func Fract(x float32) float32 { return x - math32.Floor(x) }

// ClampVec4 clamps every component of v to [lo, hi].
func ClampVec4(v mgl32.Vec4, lo, hi float32) mgl32.Vec4 {
	for i := range v {
		v[i] = mgl32.Clamp(v[i], lo, hi)
	}
	return v
}

// Normalize2 returns v scaled to unit length, or zero for a zero vector.
func Normalize2(v mgl32.Vec2) mgl32.Vec2 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec2{}
	}
	return v.Mul(1 / l)
}
