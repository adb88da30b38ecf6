package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"runtime"

	"go.uber.org/multierr"

	"github.com/richinsley/gotopology/assets"
	"github.com/richinsley/gotopology/encoder"
	"github.com/richinsley/gotopology/glfwcontext"
	"github.com/richinsley/gotopology/graphics"
	"github.com/richinsley/gotopology/headless"
	"github.com/richinsley/gotopology/input"
	"github.com/richinsley/gotopology/options"
	"github.com/richinsley/gotopology/params"
	"github.com/richinsley/gotopology/pipeline"
	"github.com/richinsley/gotopology/renderer"
	"github.com/richinsley/gotopology/software"
	"github.com/richinsley/gotopology/starfield"
)

// orbitPeriod is the time in seconds for one scripted pointer circle.
const orbitPeriod = 4.0

// scene produces one frame from the elapsed time and input.
type scene interface {
	Render(t float32, in input.Snapshot) (*image.RGBA, error)
	Resize(width, height int) error
	Close() error
}

// effect is an effect that draws on a device: the topology compositor or the
// wave.
type effect interface {
	UseLoader(l *assets.Loader)
	Open(ctx context.Context) error
	Frame(t float32, in input.Snapshot) error
	Resize(width, height int) error
	Output() pipeline.Target
	Close() error
}

// deviceScene drives an effect on any device and reads the result back.
type deviceScene struct {
	dev pipeline.Device
	e   effect
}

func newDeviceScene(dev pipeline.Device, e effect, asset params.Asset) (*deviceScene, error) {
	if asset.NoiseURL != "" {
		dir, err := assets.CacheDir("noise")
		if err != nil {
			log.Printf("No cache directory for the noise image: %v", err)
		}
		e.UseLoader(assets.NewLoader(dir))
	}
	if err := e.Open(context.Background()); err != nil {
		return nil, err
	}
	return &deviceScene{dev: dev, e: e}, nil
}

func (s *deviceScene) Render(t float32, in input.Snapshot) (*image.RGBA, error) {
	if err := s.e.Frame(t, in); err != nil {
		return nil, err
	}
	return s.dev.ReadPixels(s.e.Output())
}

func (s *deviceScene) Resize(width, height int) error { return s.e.Resize(width, height) }
func (s *deviceScene) Close() error                   { return s.e.Close() }

type starScene struct {
	f *starfield.Field
}

func (s *starScene) Render(t float32, in input.Snapshot) (*image.RGBA, error) {
	return s.f.Render(t, in.ScrollOffset), nil
}

func (s *starScene) Resize(width, height int) error {
	s.f.Resize(width, height)
	return nil
}

func (s *starScene) Close() error { return nil }

func newScene(opts *options.Options, p params.Params, dev pipeline.Device, width, height int) (scene, error) {
	var e effect
	switch *opts.Effect {
	case "starfield":
		f, err := starfield.New(width, height, *opts.Seed)
		if err != nil {
			return nil, err
		}
		return &starScene{f: f}, nil
	case "wave":
		w, err := pipeline.NewWave(dev, p, width, height)
		if err != nil {
			return nil, err
		}
		e = w
	default:
		c, err := pipeline.New(dev, p, width, height)
		if err != nil {
			return nil, err
		}
		e = c
	}
	return newDeviceScene(dev, e, p.Asset)
}

// runRecord renders a fixed number of frames at a fixed time step with a
// scripted input and hands each one to the sink.
func runRecord(opts *options.Options, s scene, scrollRange float32) (err error) {
	width, height := *opts.Width, *opts.Height
	sink, err := encoder.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	defer func() {
		err = multierr.Append(err, sink.Close())
	}()

	state := input.New(scrollRange)
	state.Resized(width, height)
	state.ScrollTo(float32(*opts.Scroll))

	totalFrames := opts.TotalFrames()
	timeStep := 1.0 / float64(*opts.FPS)
	log.Printf("Starting record mode: %d frames", totalFrames)
	for i := 0; i < totalFrames; i++ {
		currentTime := float64(i) * timeStep
		if *opts.Orbit {
			theta := 2 * math.Pi * currentTime / orbitPeriod
			x := float64(width) * (0.5 + 0.25*math.Cos(theta))
			y := float64(height) * (0.5 + 0.25*math.Sin(theta))
			state.PointerMoved(x, y, width, height)
		}

		img, err := s.Render(float32(currentTime), state.Snapshot())
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := sink.WriteFrame(img); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if (i+1)%(*opts.FPS*5) == 0 {
			log.Printf("Rendered %d/%d frames", i+1, totalFrames)
		}
	}
	return nil
}

// textureUploader is the part of a device a CPU-rendered scene is shown
// through.
type textureUploader interface {
	NewTexture(img image.Image) (pipeline.Texture, error)
	UpdateTexture(t pipeline.Texture, img image.Image) error
}

// uploadFrame renders s into tex, replacing tex when the frame size changed.
// It returns the texture that now holds the frame.
func uploadFrame(s scene, up textureUploader, tex pipeline.Texture, t float32, in input.Snapshot) (pipeline.Texture, error) {
	img, err := s.Render(t, in)
	if err != nil {
		return tex, err
	}
	if tex != nil {
		if w, h := tex.Size(); w == img.Rect.Dx() && h == img.Rect.Dy() {
			return tex, up.UpdateTexture(tex, img)
		}
		if err := tex.Destroy(); err != nil {
			return nil, err
		}
	}
	return up.NewTexture(img)
}

// runInteractive renders to the window until it is closed.
func runInteractive(ctx *glfwcontext.Context, r *renderer.Renderer, opts *options.Options, p params.Params) (err error) {
	state := input.New(p.Scroll.Range)
	ctx.Attach(state)
	width, height := ctx.GetFramebufferSize()

	s, err := newScene(opts, p, r, width, height)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	var present func(in input.Snapshot, t float32) error
	if ds, ok := s.(*deviceScene); ok {
		present = func(in input.Snapshot, t float32) error {
			if err := ds.e.Frame(t, in); err != nil {
				return err
			}
			return r.Present(ds.e.Output().Texture())
		}
	} else {
		var tex pipeline.Texture
		defer func() {
			if tex != nil {
				err = multierr.Append(err, tex.Destroy())
			}
		}()
		present = func(in input.Snapshot, t float32) error {
			var err error
			if tex, err = uploadFrame(s, r, tex, t, in); err != nil {
				return err
			}
			return r.Present(tex)
		}
	}

	log.Println("Starting interactive render loop...")
	startTime := ctx.Time()
	for !ctx.ShouldClose() {
		in := state.Snapshot()
		if in.Width != width || in.Height != height {
			if err := s.Resize(in.Width, in.Height); err != nil {
				return err
			}
			width, height = in.Width, in.Height
		}
		if err := present(in, float32(ctx.Time()-startTime)); err != nil {
			return err
		}
	}
	return nil
}

func runGL(opts *options.Options, p params.Params) error {
	if *opts.Headless {
		ctx, err := headless.NewHeadless(*opts.Width, *opts.Height)
		if err != nil {
			return fmt.Errorf("failed to create headless context: %w", err)
		}
		defer ctx.Shutdown()
		return recordGL(ctx, opts, p)
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	visible := *opts.Mode == "window"
	ctx, err := glfwcontext.New(opts, visible)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer ctx.Shutdown()

	if !visible {
		return recordGL(ctx, opts, p)
	}
	r, err := renderer.NewRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Shutdown()
	return runInteractive(ctx, r, opts, p)
}

func recordGL(ctx graphics.Context, opts *options.Options, p params.Params) error {
	r, err := renderer.NewRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	s, err := newScene(opts, p, r, *opts.Width, *opts.Height)
	if err != nil {
		return err
	}
	return multierr.Append(runRecord(opts, s, p.Scroll.Range), s.Close())
}

func runSoftware(opts *options.Options, p params.Params) error {
	s, err := newScene(opts, p, software.New(), *opts.Width, *opts.Height)
	if err != nil {
		return err
	}
	return multierr.Append(runRecord(opts, s, p.Scroll.Range), s.Close())
}

func loadParams(opts *options.Options) (params.Params, error) {
	p := params.Default()
	if *opts.ParamsFile != "" {
		var err error
		if p, err = params.Load(*opts.ParamsFile); err != nil {
			return p, err
		}
		log.Printf("Loaded parameters from %s", *opts.ParamsFile)
	}
	if *opts.NoiseURL != "" {
		p.Asset.NoiseURL = *opts.NoiseURL
	}
	return p, p.Validate()
}

func init() {
	runtime.LockOSThread()
}

func main() {
	opts, fs, err := options.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}
	if *opts.Help {
		fmt.Println("Topology background renderer")
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
		return
	}

	p, err := loadParams(opts)
	if err != nil {
		log.Fatalf("Failed to load parameters: %v", err)
	}

	if *opts.Backend == "software" {
		err = runSoftware(opts, p)
	} else {
		err = runGL(opts, p)
	}
	if err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}
	if *opts.Mode == "record" {
		log.Printf("Successfully rendered to %s", *opts.OutputFile)
	}
}
