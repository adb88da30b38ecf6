package options

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

// Options holds the command-line settings. Fields point at the values the
// flag package fills in.
type Options struct {
	Help    *bool
	Mode    *string // window or record
	Backend *string // gl or software

	// Headless records through an EGL pbuffer instead of a hidden window.
	Headless *bool

	Effect     *string // topology, wave or starfield
	Duration   *float64
	FPS        *int
	Width      *int
	Height     *int
	OutputFile *string
	FFMPEGPath *string
	Codec      *string
	NoiseURL   *string
	ParamsFile *string

	// Scroll is a fixed scroll offset in pixels for recordings.
	Scroll *float64
	// Orbit moves the pointer on a circle while recording.
	Orbit *bool

	ScrollStep *float64
	Seed       *uint64
}

// Register defines every flag on fs.
func Register(fs *flag.FlagSet) *Options {
	return &Options{
		Help:       fs.Bool("help", false, "Show help message"),
		Mode:       fs.String("mode", "window", "Run mode: window or record"),
		Backend:    fs.String("backend", "gl", "Device: gl or software"),
		Headless:   fs.Bool("headless", false, "Record with an EGL pbuffer context instead of a hidden window (Linux)"),
		Effect:     fs.String("effect", "topology", "Effect: topology, wave or starfield"),
		Duration:   fs.Float64("duration", 10.0, "Duration to record in seconds"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		Width:      fs.Int("width", 1280, "Width of the output"),
		Height:     fs.Int("height", 720, "Height of the output"),
		OutputFile: fs.String("output", "output.mp4", "Output file; .png writes the last frame, anything else is encoded with ffmpeg"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Codec:      fs.String("codec", "h264", "Video codec: h264 or hevc"),
		NoiseURL:   fs.String("noise", "", "Noise image URL or path (overrides the parameter file)"),
		ParamsFile: fs.String("params", "", "JSON file overlaid on the default parameters"),
		Scroll:     fs.Float64("scroll", 0, "Scroll offset in pixels for recordings"),
		Orbit:      fs.Bool("orbit", false, "Move the pointer in a circle while recording"),
		ScrollStep: fs.Float64("scroll-step", 100, "Scroll offset in pixels per wheel notch"),
		Seed:       fs.Uint64("seed", 1, "Seed for the star field"),
	}
}

// Parse registers the flags on a new set named name, parses args and
// validates the result.
func Parse(name string, args []string) (*Options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	o := Register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if *o.Help {
		return o, fs, nil
	}
	return o, fs, o.Validate()
}

func (o *Options) Validate() error {
	if err := oneOf("mode", *o.Mode, "window", "record"); err != nil {
		return err
	}
	if err := oneOf("backend", *o.Backend, "gl", "software"); err != nil {
		return err
	}
	if err := oneOf("effect", *o.Effect, "topology", "wave", "starfield"); err != nil {
		return err
	}
	if err := oneOf("codec", *o.Codec, "h264", "hevc"); err != nil {
		return err
	}
	if *o.Width <= 0 || *o.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", *o.Width, *o.Height)
	}
	if *o.Mode == "record" {
		if *o.FPS <= 0 {
			return fmt.Errorf("fps must be positive, got %d", *o.FPS)
		}
		if *o.Duration <= 0 {
			return fmt.Errorf("duration must be positive, got %g", *o.Duration)
		}
		if *o.OutputFile == "" {
			return fmt.Errorf("record mode needs an output file")
		}
	}
	if *o.Mode == "window" && *o.Backend == "software" {
		return fmt.Errorf("the software backend can only record")
	}
	if *o.Headless && (*o.Mode != "record" || *o.Backend != "gl") {
		return fmt.Errorf("-headless only applies to gl recordings")
	}
	if *o.ScrollStep < 0 {
		return fmt.Errorf("scroll-step must not be negative")
	}
	return nil
}

// IsImage reports whether the output is a single PNG frame.
func (o *Options) IsImage() bool {
	return strings.EqualFold(filepath.Ext(*o.OutputFile), ".png")
}

// TotalFrames is the number of frames a recording renders.
func (o *Options) TotalFrames() int {
	n := int(*o.Duration * float64(*o.FPS))
	if o.IsImage() {
		return max(1, n)
	}
	return n
}

func oneOf(flagName, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid -%s %q (want %s)", flagName, v, strings.Join(allowed, " or "))
}
