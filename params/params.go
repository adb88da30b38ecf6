// Package params holds the hand-tuned constants that drive the topology
// background. Defaults reproduce the production "Layers Hero" look; a JSON
// file can overlay any subset of them.
package params

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mazznoer/colorgrad"
)

// Noise configures the offscreen height-noise pass.
type Noise struct {
	Size        int        `json:"size"`
	Seed        float32    `json:"seed"`
	Scale       float32    `json:"scale"`
	TimeScale   float32    `json:"timeScale"`
	Offset      float32    `json:"offset"`
	Translation mgl32.Vec2 `json:"translation"`
}

// Fluid configures the four fluid sub-passes.
type Fluid struct {
	SimSize     int     `json:"simSize"`
	MouseRadius float32 `json:"mouseRadius"`
	Pressure    float32 `json:"pressure"` // damping applied after advection
	Viscosity   float32 `json:"viscosity"`
	Alpha       float32 `json:"alpha"`
	Beta        float32 `json:"beta"`
	// ForceScale converts pointer velocity into the impulse injected along
	// the pointer path.
	ForceScale float32 `json:"forceScale"`
}

// Terrain configures the instanced terrain compositor.
type Terrain struct {
	Layers int `json:"layers"`

	FluidEnabled     bool    `json:"fluidEnabled"`
	FluidEdgeEnabled bool    `json:"fluidEdgeEnabled"`
	FluidStrength    float32 `json:"fluidStrength"`
	EdgeStrength     float32 `json:"edgeStrength"`

	CycleOffset float32 `json:"cycleOffset"`
	CycleSpeed  float32 `json:"cycleSpeed"`

	Colors           [5]string  `json:"colors"`
	ColorSteps       [5]float32 `json:"colorSteps"`
	ColorHeightRange mgl32.Vec2 `json:"colorHeightRange"`

	// The color-noise constants are uploaded for parity with the production
	// material but the compositor does not read them.
	ColorNoiseStrength    float32 `json:"colorNoiseStrength"`
	ColorNoiseScale       float32 `json:"colorNoiseScale"`
	ColorNoiseRandomDepth float32 `json:"colorNoiseRandomDepth"`

	ShadowColor    string     `json:"shadowColor"`
	ShadowStrength float32    `json:"shadowStrength"`
	ShadowRange    mgl32.Vec2 `json:"shadowRange"`
	ShadowOffset   float32    `json:"shadowOffset"`

	LightColor     string     `json:"lightColor"`
	LightRange     mgl32.Vec2 `json:"lightRange"`
	LightOffset    float32    `json:"lightOffset"`
	LightStrength  float32    `json:"lightStrength"`
	LightShininess float32    `json:"lightShininess"`
	LightPos       mgl32.Vec2 `json:"lightPos"`

	DepthOffset         float32 `json:"depthOffset"`
	Height              float32 `json:"height"`
	HeightNoiseSpeed    float32 `json:"heightNoiseSpeed"`
	HeightNoiseStrength float32 `json:"heightNoiseStrength"`
	HeightNoiseScale    float32 `json:"heightNoiseScale"`
	LineNoiseStrength   float32 `json:"lineNoiseStrength"`

	IsFooter bool `json:"isFooter"`
}

// Scroll maps the page scroll offset onto terrain uniforms.
type Scroll struct {
	Range          float32 `json:"range"`
	HeightGain     float32 `json:"heightGain"`
	CycleSpeedGain float32 `json:"cycleSpeedGain"`
}

// Asset describes the external noise image and its procedural stand-in.
type Asset struct {
	NoiseURL       string  `json:"noiseURL"`
	FallbackSize   int     `json:"fallbackSize"`
	FallbackSeed   int64   `json:"fallbackSeed"`
	TimeoutSeconds float32 `json:"timeoutSeconds"`
}

// Timeout returns the fetch deadline for the noise image.
func (a Asset) Timeout() time.Duration {
	return time.Duration(float64(a.TimeoutSeconds) * float64(time.Second))
}

// Wave drives the rainbow wave effect. Rotation is in turns per unit of
// normalized scroll; Vignette runs from the radius where the image is black
// to the radius where it is untouched.
type Wave struct {
	Frequency  float32    `json:"frequency"`
	Speed      float32    `json:"speed"`
	Rotation   float32    `json:"rotation"`
	ScaleGain  float32    `json:"scaleGain"`
	Parallax   float32    `json:"parallax"`
	NoiseScale float32    `json:"noiseScale"`
	NoiseDrift mgl32.Vec2 `json:"noiseDrift"`
	Grain      float32    `json:"grain"`
	Vignette   mgl32.Vec2 `json:"vignette"`
	Saturation float32    `json:"saturation"`
}

// Params is the full constant table.
type Params struct {
	Noise   Noise   `json:"noise"`
	Fluid   Fluid   `json:"fluid"`
	Terrain Terrain `json:"terrain"`
	Scroll  Scroll  `json:"scroll"`
	Asset   Asset   `json:"asset"`
	Wave    Wave    `json:"wave"`
}

// Default returns the production values.
func Default() Params {
	return Params{
		Noise: Noise{
			Size:        256,
			Seed:        1230,
			Scale:       0.81,
			TimeScale:   0,
			Offset:      0.244,
			Translation: mgl32.Vec2{-0.19, -0.12},
		},
		Fluid: Fluid{
			SimSize:     256,
			MouseRadius: 0.07,
			Pressure:    0.9324,
			Viscosity:   0.9603174603174605,
			Alpha:       1.0,
			Beta:        0.25,
			ForceScale:  160,
		},
		Terrain: Terrain{
			Layers:                128,
			FluidEnabled:          true,
			FluidEdgeEnabled:      true,
			FluidStrength:         0.057,
			EdgeStrength:          0.004,
			Colors:                [5]string{"#C6C6C6", "#C6C6C6", "#C6C6C6", "#C6C6C6", "#C6C6C6"},
			ColorSteps:            [5]float32{0.192, 0.373, 0.6194, 0.8164, 1.0},
			ColorHeightRange:      mgl32.Vec2{0, 1},
			ColorNoiseStrength:    1.03,
			ColorNoiseScale:       0.888,
			ColorNoiseRandomDepth: 0.4558,
			ShadowColor:           "#000000",
			ShadowStrength:        0.858,
			ShadowRange:           mgl32.Vec2{0.00634920634920633, 0.014285714285714525},
			ShadowOffset:          0.0075,
			LightColor:            "#D6CFC7",
			LightRange:            mgl32.Vec2{0.04603174603174605, 0.10634920634920617},
			LightOffset:           0.068,
			LightStrength:         0.437,
			LightShininess:        1.04,
			LightPos:              mgl32.Vec2{-0.37, 0.107},
			DepthOffset:           0.175,
			Height:                0.426,
			HeightNoiseSpeed:      0.00111,
			HeightNoiseStrength:   0.024,
			HeightNoiseScale:      0.16,
			LineNoiseStrength:     1.34,
		},
		Scroll: Scroll{
			Range:          3000,
			HeightGain:     0.02,
			CycleSpeedGain: 0,
		},
		Asset: Asset{
			FallbackSize:   64,
			FallbackSeed:   1,
			TimeoutSeconds: 10,
		},
		Wave: Wave{
			Frequency:  10,
			Speed:      0.6,
			Rotation:   1,
			ScaleGain:  0.4,
			Parallax:   0.1,
			NoiseScale: 2,
			NoiseDrift: mgl32.Vec2{0.02, 0.5},
			Grain:      0.35,
			Vignette:   mgl32.Vec2{0.9, 0.2},
			Saturation: 0.6,
		},
	}
}

// Load overlays the JSON file at path on the defaults and validates the result.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read params file: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks the invariants the renderer relies on.
func (p Params) Validate() error {
	if p.Noise.Size <= 0 {
		return fmt.Errorf("noise.size must be positive, got %d", p.Noise.Size)
	}
	if p.Fluid.SimSize <= 0 {
		return fmt.Errorf("fluid.simSize must be positive, got %d", p.Fluid.SimSize)
	}
	if p.Terrain.Layers <= 0 {
		return fmt.Errorf("terrain.layers must be positive, got %d", p.Terrain.Layers)
	}
	if p.Scroll.Range <= 0 {
		return fmt.Errorf("scroll.range must be positive, got %v", p.Scroll.Range)
	}
	if p.Asset.FallbackSize <= 0 {
		return fmt.Errorf("asset.fallbackSize must be positive, got %d", p.Asset.FallbackSize)
	}
	for i := 1; i < len(p.Terrain.ColorSteps); i++ {
		if p.Terrain.ColorSteps[i] < p.Terrain.ColorSteps[i-1] {
			return fmt.Errorf("terrain.colorSteps must be non-decreasing, step %d is %v after %v",
				i+1, p.Terrain.ColorSteps[i], p.Terrain.ColorSteps[i-1])
		}
	}
	if r := p.Terrain.ColorHeightRange; r[0] == r[1] {
		return fmt.Errorf("terrain.colorHeightRange must not be empty, got %v", r)
	}
	if _, err := p.Terrain.Palette(); err != nil {
		return err
	}
	if v := p.Wave.Vignette; v[0] == v[1] {
		return fmt.Errorf("wave.vignette must not be empty, got %v", v)
	}
	return nil
}

// Palette is the parsed form of the terrain colors.
type Palette struct {
	Stops  [5]mgl32.Vec3
	Shadow mgl32.Vec3
	Light  mgl32.Vec3
}

// Palette parses the terrain's hex colors into linear 0..1 RGB triples.
func (t Terrain) Palette() (Palette, error) {
	var pal Palette
	stops, err := ParseColors(t.Colors[:]...)
	if err != nil {
		return pal, fmt.Errorf("terrain.colors: %w", err)
	}
	copy(pal.Stops[:], stops)

	extra, err := ParseColors(t.ShadowColor, t.LightColor)
	if err != nil {
		return pal, fmt.Errorf("terrain.shadowColor/lightColor: %w", err)
	}
	pal.Shadow, pal.Light = extra[0], extra[1]
	return pal, nil
}

// ParseColors converts CSS colors ("#C6C6C6", "rebeccapurple", "rgb(...)")
// into RGB vectors, in order.
func ParseColors(css ...string) ([]mgl32.Vec3, error) {
	if len(css) == 0 {
		return nil, nil
	}
	// A gradient needs two stops; a lone color is parsed as a flat gradient.
	stops := css
	if len(stops) == 1 {
		stops = []string{css[0], css[0]}
	}
	grad, err := colorgrad.NewGradient().HtmlColors(stops...).Build()
	if err != nil {
		return nil, fmt.Errorf("invalid color in %q: %w", css, err)
	}
	sampled := grad.Colors(uint(len(stops)))
	out := make([]mgl32.Vec3, len(css))
	for i := range out {
		out[i] = toVec3(sampled[i])
	}
	return out, nil
}

func toVec3(c color.Color) mgl32.Vec3 {
	r, g, b, _ := c.RGBA()
	return mgl32.Vec3{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff}
}
