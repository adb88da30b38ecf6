package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gotopology/input"
	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

// fakeResource stands in for every device resource kind.
type fakeResource struct {
	kind      string
	pass      shader.Pass
	w, h      int
	destroyed int
}

func (r *fakeResource) Texture() uniforms.Texture { return r }
func (r *fakeResource) Size() (int, int)          { return r.w, r.h }
func (r *fakeResource) Pass() shader.Pass         { return r.pass }
func (r *fakeResource) Destroy() error {
	r.destroyed++
	if r.destroyed > 1 {
		return errors.New("double destroy of " + r.kind)
	}
	return nil
}

type drawCall struct {
	pass     shader.Pass
	dst      *fakeResource
	textures map[string]uniforms.Texture
}

type fakeDevice struct {
	created []*fakeResource
	failAt  int // 1-based creation index that fails, 0 for never
	draws   []drawCall
}

func (d *fakeDevice) create(kind string, w, h int) (*fakeResource, error) {
	if d.failAt > 0 && len(d.created)+1 == d.failAt {
		return nil, errors.New("injected failure")
	}
	r := &fakeResource{kind: kind, w: w, h: h}
	d.created = append(d.created, r)
	return r, nil
}

func (d *fakeDevice) NewTarget(w, h int) (Target, error) {
	r, err := d.create("target", w, h)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *fakeDevice) NewScreen(w, h int) (Target, error) {
	r, err := d.create("screen", w, h)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *fakeDevice) NewProgram(pass shader.Pass) (Program, error) {
	r, err := d.create("program", 0, 0)
	if err != nil {
		return nil, err
	}
	r.pass = pass
	return r, nil
}

func (d *fakeDevice) NewTexture(img image.Image) (Texture, error) {
	b := img.Bounds()
	r, err := d.create("texture", b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *fakeDevice) record(prog Program, set *uniforms.Set, dst Target) {
	call := drawCall{pass: prog.Pass(), dst: dst.(*fakeResource), textures: map[string]uniforms.Texture{}}
	for _, name := range set.Names() {
		if v, _ := set.Get(name); v.Kind == uniforms.Sampler {
			call.textures[name] = v.Tex
		}
	}
	d.draws = append(d.draws, call)
}

func (d *fakeDevice) Draw(prog Program, set *uniforms.Set, dst Target) error {
	d.record(prog, set, dst)
	return nil
}

func (d *fakeDevice) DrawLayers(prog Program, set *uniforms.Set, offsets []float32, dst Target) error {
	d.record(prog, set, dst)
	return nil
}

func (d *fakeDevice) ReadPixels(t Target) (*image.RGBA, error) {
	w, h := t.Size()
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (d *fakeDevice) live() int {
	n := 0
	for _, r := range d.created {
		if r.destroyed == 0 {
			n++
		}
	}
	return n
}

func openCompositor(t *testing.T, dev *fakeDevice, p params.Params) *Compositor {
	t.Helper()
	c, err := New(dev, p, 320, 200)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))
	return c
}

func TestFramePassOrder(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	defer c.Close()

	require.NoError(t, c.Frame(0, input.Snapshot{}))
	var order []shader.Pass
	for _, d := range dev.draws {
		order = append(order, d.pass)
	}
	assert.Equal(t, shader.Passes, order)
}

func TestPingPongRoles(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	defer c.Close()

	require.NoError(t, c.Frame(0, input.Snapshot{}))
	require.NoError(t, c.Frame(1.0/60, input.Snapshot{}))
	first, second := dev.draws[:6], dev.draws[6:]

	advect, gradient := first[shader.Velocity], first[shader.Gradient]
	assert.Same(t, advect.dst, gradient.textures["uVelocity"], "gradient reads the advected field")
	assert.Same(t, gradient.dst, second[shader.Velocity].textures["tTexture"], "next advection reads the gradient output")
	assert.Same(t, gradient.dst, first[shader.Terrain].textures["tFluid"])

	pressure := first[shader.Pressure]
	assert.Same(t, pressure.dst, gradient.textures["uPressure"])
	assert.Same(t, pressure.dst, second[shader.Pressure].textures["tTexture"], "pressure swaps each frame")

	for _, d := range dev.draws {
		for name, tex := range d.textures {
			assert.NotSame(t, d.dst, tex, "%s pass samples its own target through %s", d.pass, name)
		}
	}
}

func TestPointerAndScrollMapping(t *testing.T) {
	dev := &fakeDevice{}
	p := params.Default()
	c := openCompositor(t, dev, p)
	defer c.Close()

	vel := c.Uniforms(shader.Velocity)
	ter := c.Uniforms(shader.Terrain)

	require.NoError(t, c.Frame(0, input.Snapshot{}))
	assert.Equal(t, mgl32.Vec2{-1, -1}, vel.Vec2("uMouse"))
	assert.Equal(t, mgl32.Vec2{}, vel.Vec2("uForce"))
	assert.Equal(t, p.Terrain.LightPos, ter.Vec2("uLightPos"))

	snap := input.Snapshot{
		Pointer:     mgl32.Vec2{0.3, 0.6},
		PrevPointer: mgl32.Vec2{0.1, 0.6},
		Velocity:    mgl32.Vec2{0.2 / 16, 0},
		Moved:       true,
		Scroll:      1,
	}
	require.NoError(t, c.Frame(0.1, snap))
	assert.Equal(t, snap.Pointer, vel.Vec2("uMouse"))
	assert.Equal(t, snap.PrevPointer, vel.Vec2("uPrevMouse"))
	assert.InDelta(t, 0.2/16*p.Fluid.ForceScale, vel.Vec2("uForce")[0], 1e-5)
	assert.Equal(t, mgl32.Vec2{-0.3, 0.6}, ter.Vec2("uLightPos"))
	assert.InDelta(t, 0.446, ter.Float("uHeight"), 1e-6)
	assert.Equal(t, float32(0), ter.Float("uCycleSpeed"))
	assert.Equal(t, float32(0.1), ter.Float("uTime"))

	// a pointer that has not moved since the last frame injects nothing
	require.NoError(t, c.Frame(0.2, snap))
	assert.Equal(t, mgl32.Vec2{}, vel.Vec2("uForce"))
}

func TestNoiseBoundBeforeFirstFrameWhenFetchFails(t *testing.T) {
	dev := &fakeDevice{}
	p := params.Default()
	p.Asset.NoiseURL = filepath.Join(t.TempDir(), "missing.jpg")
	c := openCompositor(t, dev, p)
	defer c.Close()

	ter := c.Uniforms(shader.Terrain)
	require.NotNil(t, ter.Texture("tNoise"), "fallback bound straight after Open")
	assert.True(t, c.UsingFallback())

	select {
	case <-c.noiseImg.pending.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not finish")
	}
	require.NoError(t, c.Frame(0, input.Snapshot{}))
	assert.True(t, c.UsingFallback())
	assert.NotNil(t, ter.Texture("tNoise"))
}

func TestNoiseSwappedInWhenFetchSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	dev := &fakeDevice{}
	p := params.Default()
	p.Asset.NoiseURL = path
	c := openCompositor(t, dev, p)
	defer c.Close()

	fallback := c.Uniforms(shader.Terrain).Texture("tNoise").(*fakeResource)
	<-c.noiseImg.pending.Done()
	require.NoError(t, c.Frame(0, input.Snapshot{}))

	assert.False(t, c.UsingFallback())
	loaded := c.Uniforms(shader.Terrain).Texture("tNoise").(*fakeResource)
	assert.NotSame(t, fallback, loaded)
	assert.Equal(t, 16, loaded.w)
	assert.Equal(t, 1, fallback.destroyed, "fallback released on swap")
}

func TestCloseIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	require.NoError(t, c.Frame(0, input.Snapshot{}))

	require.NoError(t, c.Close())
	assert.Zero(t, dev.live())
	for _, r := range dev.created {
		assert.Equal(t, 1, r.destroyed, r.kind)
	}

	require.NoError(t, c.Close())
	for _, r := range dev.created {
		assert.Equal(t, 1, r.destroyed, "second Close released %s again", r.kind)
	}
	assert.ErrorIs(t, c.Frame(0, input.Snapshot{}), ErrClosed)
	assert.ErrorIs(t, c.Open(context.Background()), ErrClosed)
	assert.ErrorIs(t, c.Resize(10, 10), ErrClosed)
}

func TestOpenFailureReleasesEverything(t *testing.T) {
	// programs, noise, 2 velocity, divergence, 2 pressure, screen, texture
	for failAt := 1; failAt <= len(shader.Passes)+8; failAt++ {
		dev := &fakeDevice{failAt: failAt}
		c, err := New(dev, params.Default(), 64, 64)
		require.NoError(t, err)
		err = c.Open(context.Background())
		require.Error(t, err, "creation %d", failAt)
		assert.Zero(t, dev.live(), "creation %d leaked resources", failAt)
		for _, r := range dev.created {
			assert.Equal(t, 1, r.destroyed)
		}
	}
}

func TestFrameBeforeOpen(t *testing.T) {
	c, err := New(&fakeDevice{}, params.Default(), 64, 64)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Frame(0, input.Snapshot{}), ErrNotOpen)
	require.NoError(t, c.Close(), "closing an unopened compositor is fine")
}

func TestResize(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	defer c.Close()

	before := len(dev.created)
	old := c.Output().(*fakeResource)

	require.NoError(t, c.Resize(0, 0))
	require.NoError(t, c.Resize(320, 200))
	assert.Len(t, dev.created, before, "zero and unchanged sizes are ignored")

	require.NoError(t, c.Resize(640, 480))
	assert.Len(t, dev.created, before+1, "only the screen is recreated")
	assert.Equal(t, 1, old.destroyed)
	w, h := c.Output().Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, mgl32.Vec2{640, 480}, c.Uniforms(shader.Terrain).Vec2("uResolution"))
	assert.Equal(t, mgl32.Vec2{256, 256}, c.Uniforms(shader.Velocity).Vec2("uResolution"))
}

func TestResizeRetriesAfterFailure(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	defer c.Close()

	old := c.Output().(*fakeResource)
	dev.failAt = len(dev.created) + 1
	require.Error(t, c.Resize(640, 480))

	w, h := c.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	assert.Same(t, old, c.Output())
	assert.Zero(t, old.destroyed)
	assert.Equal(t, mgl32.Vec2{320, 200}, c.Uniforms(shader.Terrain).Vec2("uResolution"))

	dev.failAt = 0
	require.NoError(t, c.Resize(640, 480))
	w, h = c.Output().Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	w, h = c.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, 1, old.destroyed)
	assert.Equal(t, mgl32.Vec2{640, 480}, c.Uniforms(shader.Terrain).Vec2("uResolution"))
}

func TestCheckRejectsFeedbackAndUnbound(t *testing.T) {
	dev := &fakeDevice{}
	c := openCompositor(t, dev, params.Default())
	defer c.Close()

	set := c.Uniforms(shader.Velocity)
	set.SetTexture("tTexture", c.velocity.Write().Texture())
	assert.ErrorIs(t, c.check(shader.Velocity, c.velocity.Write()), ErrFeedbackLoop)

	fresh := uniforms.NewSet()
	fresh.Declare("tExtra")
	c.sets[shader.Velocity] = fresh
	assert.ErrorIs(t, c.Frame(0, input.Snapshot{}), ErrUnboundTexture)
}

func TestNewValidates(t *testing.T) {
	p := params.Default()
	p.Fluid.SimSize = 0
	_, err := New(&fakeDevice{}, p, 10, 10)
	assert.Error(t, err)

	_, err = New(&fakeDevice{}, params.Default(), 0, 10)
	assert.Error(t, err)
}
