package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gotopology/params"
)

type constant mgl32.Vec4

func (c constant) Sample(mgl32.Vec2) mgl32.Vec4 { return mgl32.Vec4(c) }

func material(t *testing.T, height float32) *Material {
	t.Helper()
	p := params.Default().Terrain
	p.FluidEnabled = false
	pal, err := p.Palette()
	require.NoError(t, err)
	return &Material{
		HeightNoise: constant{height, height, height, 1},
		Noise:       constant{},
		Fluid:       constant{},
		Terrain:     p,
		Palette:     pal,
		LightPos:    p.LightPos,
		Resolution:  mgl32.Vec2{100, 100},
	}
}

func frag(depth float32) Fragment {
	return Fragment{UV: mgl32.Vec2{0.5, 0.5}, FragCoord: mgl32.Vec2{50.5, 50.5}, Depth: depth}
}

func TestShadeThreshold(t *testing.T) {
	m := material(t, 0.5)

	_, ok := m.Shade(frag(0.2))
	assert.True(t, ok, "0.5 - 0.2*0.175 is above the height threshold")

	_, ok = m.Shade(frag(0.9))
	assert.False(t, ok, "deep layers fall below the threshold")
}

func TestShadeOcclusionSample(t *testing.T) {
	m := material(t, 0.9)

	_, ok := m.Shade(frag(0.1))
	assert.False(t, ok, "a layer above also crosses, so this one is hidden")

	_, ok = m.Shade(frag(0.95))
	assert.True(t, ok, "front layers skip the occlusion sample")
}

func TestShadeFooter(t *testing.T) {
	m := material(t, 0)
	_, ok := m.Shade(frag(0.05))
	assert.False(t, ok)

	m.Terrain.IsFooter = true
	_, ok = m.Shade(frag(0.05))
	assert.True(t, ok, "footer forces the nearest layers through")
	_, ok = m.Shade(frag(0.07))
	assert.False(t, ok)
}

func TestShadeColour(t *testing.T) {
	m := material(t, 0.5)
	c, ok := m.Shade(frag(0.2))
	require.True(t, ok)

	// flat grey ramp, no rim or highlight, full shadow at strength 0.858
	grey := float32(0xC6) / 255
	want := grey * (1 - m.Terrain.ShadowStrength)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want, c[i], 1e-3)
	}

	c, ok = m.Shade(frag(0.95))
	require.True(t, ok)
	assert.InDelta(t, grey, c[0], 1e-3, "front layers carry neither shadow nor highlight")
}

func TestShadeFluidLowersHeight(t *testing.T) {
	m := material(t, 0.5)
	m.Fluid = constant{0.5, 0.5, 0, 1}

	_, ok := m.Shade(frag(0.2))
	assert.True(t, ok, "fluid disabled")

	m.Terrain.FluidEnabled = true
	m.Terrain.FluidEdgeEnabled = false
	_, ok = m.Shade(frag(0.2))
	assert.False(t, ok, "speed 1 * 0.057 pushes the layer under the threshold")

	m.Terrain.FluidEdgeEnabled = true
	_, ok = m.Shade(frag(0.2))
	assert.True(t, ok, "edge mode only lowers by 0.004")
}

func TestShadeNilFluid(t *testing.T) {
	m := material(t, 0.5)
	m.Terrain.FluidEnabled = true
	m.Fluid = nil
	_, ok := m.Shade(frag(0.2))
	assert.True(t, ok)
}
