// Package starfield draws the parallax star background: four layers of
// twinkling stars that drift with the scroll offset at different speeds.
package starfield

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	"github.com/richinsley/gotopology/params"
)

// Layer is one depth band of stars. Faster layers read as nearer.
type Layer struct {
	Count int
	Speed float32 // parallax factor applied to the scroll offset
	Size  float32 // minimum radius in pixels
}

// Layers runs far to near.
var Layers = []Layer{
	{Count: 40, Speed: 0.05, Size: 1},
	{Count: 25, Speed: 0.15, Size: 1.5},
	{Count: 15, Speed: 0.25, Size: 2},
	{Count: 8, Speed: 0.4, Size: 2.5},
}

// Palette is the set of star colours; each star picks one at random.
var Palette = []string{"#ffffff", "#e0e0e0", "#f0f0f0", "#64b5f6", "#42a5f5"}

const (
	// stars wrap this far below the bottom edge
	wrapMargin = 100
	// twinkle phases advance per frame at this rate
	referenceFPS = 60
	glowMinSize  = 1.5
	glowScale    = 2
	glowAlpha    = 0.3
	// cubic Bézier control distance for a quarter circle
	kappa = 0.5522847
)

type Star struct {
	X, Y         float32
	Size         float32
	Speed        float32
	Twinkle      float32 // initial phase
	TwinkleSpeed float32 // radians per frame
	Color        color.NRGBA
}

// Position returns the star's centre for a scroll offset in pixels.
func (s Star) Position(scroll float32, height int) (x, y float32) {
	return s.X, math32.Mod(s.Y+scroll*s.Speed, float32(height+wrapMargin))
}

// Brightness is the twinkle factor at time t seconds, in [0.4, 1].
func (s Star) Brightness(t float32) float32 {
	phase := s.Twinkle + s.TwinkleSpeed*t*referenceFPS
	return math32.Sin(phase)*0.3 + 0.7
}

// Field is a generated star field for one viewport size.
type Field struct {
	width, height int
	seed          uint64
	colors        []color.NRGBA
	stars         []Star
	raster        *vector.Rasterizer
}

// New generates the stars for a width×height viewport from seed.
func New(width, height int, seed uint64) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid star field size %dx%d", width, height)
	}
	vs, err := params.ParseColors(Palette...)
	if err != nil {
		return nil, err
	}
	f := &Field{seed: seed, raster: vector.NewRasterizer(1, 1)}
	for _, v := range vs {
		f.colors = append(f.colors, color.NRGBA{R: to8(v[0]), G: to8(v[1]), B: to8(v[2]), A: 255})
	}
	f.Resize(width, height)
	return f, nil
}

func to8(v float32) uint8 {
	return uint8(math32.Round(math32.Max(0, math32.Min(1, v)) * 255))
}

// Resize regenerates the stars for a new viewport. The same seed gives the
// same field for the same size.
func (f *Field) Resize(width, height int) {
	if width <= 0 || height <= 0 || (width == f.width && height == f.height) {
		return
	}
	f.width, f.height = width, height

	rng := rand.New(rand.NewPCG(f.seed, 0))
	f.stars = f.stars[:0]
	for _, layer := range Layers {
		for i := 0; i < layer.Count; i++ {
			f.stars = append(f.stars, Star{
				X:            rng.Float32() * float32(width),
				Y:            rng.Float32() * float32(height),
				Size:         layer.Size + rng.Float32()*0.5,
				Speed:        layer.Speed,
				Color:        f.colors[rng.IntN(len(f.colors))],
				Twinkle:      rng.Float32() * 2 * math32.Pi,
				TwinkleSpeed: 0.02 + rng.Float32()*0.03,
			})
		}
	}
}

func (f *Field) Stars() []Star    { return f.stars }
func (f *Field) Size() (int, int) { return f.width, f.height }

// Render draws the field at time t seconds and a scroll offset in pixels
// onto a fresh black image.
func (f *Field) Render(t, scroll float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, s := range f.stars {
		x, y := s.Position(scroll, f.height)
		a := s.Brightness(t)
		f.disc(img, x, y, s.Size, s.Color, a)
		if s.Size > glowMinSize {
			f.disc(img, x, y, s.Size*glowScale, s.Color, a*glowAlpha)
		}
	}
	return img
}

// disc composites a filled circle of colour c at opacity alpha over dst.
func (f *Field) disc(dst *image.RGBA, cx, cy, r float32, c color.NRGBA, alpha float32) {
	box := image.Rect(
		int(math32.Floor(cx-r)), int(math32.Floor(cy-r)),
		int(math32.Ceil(cx+r)), int(math32.Ceil(cy+r)),
	).Intersect(dst.Bounds())
	if box.Empty() || alpha <= 0 {
		return
	}

	z := f.raster
	z.Reset(box.Dx(), box.Dy())
	// path in rasterizer space, whose origin is box.Min
	x, y := cx-float32(box.Min.X), cy-float32(box.Min.Y)
	k := r * kappa
	z.MoveTo(x+r, y)
	z.CubeTo(x+r, y+k, x+k, y+r, x, y+r)
	z.CubeTo(x-k, y+r, x-r, y+k, x-r, y)
	z.CubeTo(x-r, y-k, x-k, y-r, x, y-r)
	z.CubeTo(x+k, y-r, x+r, y-k, x+r, y)
	z.ClosePath()

	c.A = to8(alpha * float32(c.A) / 255)
	z.Draw(dst, box, image.NewUniform(c), image.Point{})
}
