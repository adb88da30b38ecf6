// Package noise generates the height field the terrain layers are cut from,
// and the procedural stand-in for the external noise image.
package noise

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"github.com/richinsley/gotopology/grid"
	"github.com/richinsley/gotopology/params"
)

// Field is a simplex height field that tiles over the unit square.
type Field struct {
	src opensimplex.Noise
	cfg params.Noise
}

func New(cfg params.Noise) *Field {
	return &Field{
		src: opensimplex.New(int64(cfg.Seed)),
		cfg: cfg,
	}
}

// Eval returns the height at uv and time t, in [0,1]. A zero TimeScale makes
// the field static.
func (f *Field) Eval(uv mgl32.Vec2, t float32) float32 {
	z := float64(f.cfg.Offset + t*f.cfg.TimeScale)
	n := tile(func(x, y float64) float64 {
		sx := (x + float64(f.cfg.Translation[0])) * float64(f.cfg.Scale)
		sy := (y + float64(f.cfg.Translation[1])) * float64(f.cfg.Scale)
		return f.src.Eval3(sx, sy, z)
	}, float64(uv[0]), float64(uv[1]), 1, 1)
	return mgl32.Clamp(float32(0.5+0.5*n), 0, 1)
}

// Render writes the field into every channel of g (alpha 1).
func (f *Field) Render(g *grid.Grid, t float32) {
	g.Fill(func(uv mgl32.Vec2) mgl32.Vec4 {
		n := f.Eval(uv, t)
		return mgl32.Vec4{n, n, n, 1}
	})
}

// tile blends a source with its copies shifted by one period on each axis so
// the result is seamless across all edges.
func tile(src func(x, y float64) float64, x, y, w, h float64) float64 {
	u, v := x/w, y/h
	a := src(x, y)
	b := src(x-w, y)
	c := src(x, y-h)
	d := src(x-w, y-h)
	ab := a*(1-u) + b*u
	cd := c*(1-u) + d*u
	return ab*(1-v) + cd*v
}

// fallbackFeature is the size in texels of one noise feature in the
// fallback image.
const fallbackFeature = 8.0

// Fallback builds a size×size RGB noise image that tiles seamlessly. Each
// channel is an independent simplex field derived from seed. It stands in for
// the external noise image until (or instead of) the real one arriving.
func Fallback(size int, seed int64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	if size <= 0 {
		return img
	}
	var channels [3]opensimplex.Noise
	for i := range channels {
		channels[i] = opensimplex.New(seed + int64(i))
	}
	period := float64(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var rgb [3]uint8
			for i, src := range channels {
				n := tile(func(px, py float64) float64 {
					return src.Eval2(px/fallbackFeature, py/fallbackFeature)
				}, float64(x), float64(y), period, period)
				rgb[i] = uint8(mgl32.Clamp(float32(0.5+0.5*n), 0, 1) * 255)
			}
			img.SetRGBA(x, y, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}
	return img
}
