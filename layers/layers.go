// Package layers describes the instanced terrain slabs.
package layers

import "github.com/chewxy/math32"

// Count is the number of instanced layers drawn per frame.
const Count = 128

// Offsets returns n evenly spaced layer offsets (i+1)/n, in (0,1].
func Offsets(n int) []float32 {
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i+1) / float32(n)
	}
	return out
}

// Depth is the cyclic depth of a layer at time t: the fractional part of
// t*speed + offset + cycleOffset. It is always in [0,1) so the slabs wrap
// around instead of drifting away.
func Depth(offset, t, speed, cycleOffset float32) float32 {
	d := math32.Mod(t*speed+offset+cycleOffset, 1)
	if d < 0 {
		d++
	}
	// d+1 can round up to exactly 1 for tiny negative d.
	if d >= 1 {
		d = 0
	}
	return d
}
