// Package grid is a float RGBA texel grid with GL-style sampling. It backs
// every texture and render target of the software device.
package grid

import (
	"image"
	"image/color"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Wrap selects how out-of-range coordinates are resolved.
type Wrap int

const (
	Clamp Wrap = iota
	Repeat
)

// Grid stores W*H RGBA texels. Row 0 is the bottom row, matching GL
// texture coordinates where v=0 is the first row uploaded.
type Grid struct {
	W, H int
	Wrap Wrap
	Pix  []float32
}

func New(w, h int, wrap Wrap) *Grid {
	return &Grid{W: w, H: h, Wrap: wrap, Pix: make([]float32, w*h*4)}
}

// Size implements uniforms.Texture.
func (g *Grid) Size() (int, int) { return g.W, g.H }

func (g *Grid) resolve(x, y int) (int, int) {
	if g.Wrap == Repeat {
		x %= g.W
		if x < 0 {
			x += g.W
		}
		y %= g.H
		if y < 0 {
			y += g.H
		}
		return x, y
	}
	return min(max(x, 0), g.W-1), min(max(y, 0), g.H-1)
}

// At returns the texel at integer coordinates, wrapped.
func (g *Grid) At(x, y int) mgl32.Vec4 {
	x, y = g.resolve(x, y)
	i := (y*g.W + x) * 4
	return mgl32.Vec4{g.Pix[i], g.Pix[i+1], g.Pix[i+2], g.Pix[i+3]}
}

// Set writes a texel. Coordinates must be in range.
func (g *Grid) Set(x, y int, v mgl32.Vec4) {
	i := (y*g.W + x) * 4
	g.Pix[i], g.Pix[i+1], g.Pix[i+2], g.Pix[i+3] = v[0], v[1], v[2], v[3]
}

// Sample is a bilinear (GL_LINEAR) lookup at normalized coordinates.
func (g *Grid) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	fx := uv[0]*float32(g.W) - 0.5
	fy := uv[1]*float32(g.H) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	a := g.At(x0, y0)
	b := g.At(x0+1, y0)
	c := g.At(x0, y0+1)
	d := g.At(x0+1, y0+1)

	bottom := a.Mul(1 - tx).Add(b.Mul(tx))
	top := c.Mul(1 - tx).Add(d.Mul(tx))
	return bottom.Mul(1 - ty).Add(top.Mul(ty))
}

// Fill evaluates fn at every texel centre and stores the result. Rows are
// computed in parallel; fn must not write shared state.
func (g *Grid) Fill(fn func(uv mgl32.Vec2) mgl32.Vec4) {
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < g.H; y++ {
		eg.Go(func() error {
			v := (float32(y) + 0.5) / float32(g.H)
			for x := 0; x < g.W; x++ {
				u := (float32(x) + 0.5) / float32(g.W)
				g.Set(x, y, fn(mgl32.Vec2{u, v}))
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// Clear sets every texel to v.
func (g *Grid) Clear(v mgl32.Vec4) {
	for i := 0; i < len(g.Pix); i += 4 {
		g.Pix[i], g.Pix[i+1], g.Pix[i+2], g.Pix[i+3] = v[0], v[1], v[2], v[3]
	}
}

// FromImage converts img to a grid, flipping it so the image's top row lands
// at v=1.
func FromImage(img image.Image, wrap Wrap) *Grid {
	b := img.Bounds()
	g := New(b.Dx(), b.Dy(), wrap)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			g.Set(x, b.Dy()-1-y, mgl32.Vec4{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			})
		}
	}
	return g
}

// RGBA quantizes the grid to 8 bits per channel, top row first.
func (g *Grid) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.W, g.H))
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			v := g.At(x, y)
			img.SetRGBA(x, g.H-1-y, color.RGBA{
				R: quantize(v[0]),
				G: quantize(v[1]),
				B: quantize(v[2]),
				A: quantize(v[3]),
			})
		}
	}
	return img
}

func quantize(f float32) uint8 {
	return uint8(math32.Round(mgl32.Clamp(f, 0, 1) * 255))
}
