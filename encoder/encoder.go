// Package encoder writes rendered frames out: a video through an ffmpeg
// rawvideo pipe, or a single PNG.
package encoder

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/multierr"

	"github.com/richinsley/gotopology/options"
)

// Frame represents a single rendered video frame's data, ready for encoding.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Sink consumes frames top row first.
type Sink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

const numBuffers = 3

// New picks the sink for the output file: PNG for .png, video otherwise.
func New(opts *options.Options) (Sink, error) {
	if opts.IsImage() {
		return &PNG{Path: *opts.OutputFile}, nil
	}
	return NewVideo(opts)
}

// InputArgs describes the raw RGBA stream written to ffmpeg's stdin.
func InputArgs(width, height, fps int) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", width, height),
		"framerate": fps,
	}
}

// OutputArgs chooses the encoder for codec on goos. macOS uses VideoToolbox;
// elsewhere the software x264/x265 encoders are used.
func OutputArgs(codec, outputFile, goos string) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	switch goos {
	case "darwin":
		if codec == "hevc" {
			args["c:v"] = "hevc_videotoolbox"
		} else {
			args["c:v"] = "h264_videotoolbox"
		}
		args["b:v"] = "25M"
	default:
		if codec == "hevc" {
			args["c:v"] = "libx265"
		} else {
			args["c:v"] = "libx264"
		}
		args["crf"] = 18
	}
	if codec == "hevc" && strings.EqualFold(filepath.Ext(outputFile), ".mp4") {
		args["tag:v"] = "hvc1"
	}
	return args
}

// Video streams frames to an ffmpeg process. Frames are handed to a writer
// goroutine through a small buffered channel.
type Video struct {
	width, height int
	frames        chan *Frame
	done          chan error
	pts           int64
	closed        bool
}

// NewVideo starts ffmpeg for opts.
func NewVideo(opts *options.Options) (*Video, error) {
	width, height, fps := *opts.Width, *opts.Height, *opts.FPS
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("invalid video format %dx%d@%d", width, height, fps)
	}

	pipeReader, pipeWriter := io.Pipe()
	ffmpegCmd := ffmpeg.Input("pipe:", InputArgs(width, height, fps)).
		Output(*opts.OutputFile, OutputArgs(*opts.Codec, *opts.OutputFile, runtime.GOOS)).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if *opts.FFMPEGPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(*opts.FFMPEGPath)
	}

	errc := make(chan error, 1)
	go func() {
		err := ffmpegCmd.Run()
		// unblock the writer if ffmpeg exits early
		pipeReader.CloseWithError(io.ErrClosedPipe)
		errc <- err
	}()

	v := &Video{
		width:  width,
		height: height,
		frames: make(chan *Frame, numBuffers),
		done:   make(chan error, 1),
	}
	go v.run(pipeWriter, errc)
	log.Printf("Recording %dx%d at %d fps to %s (%s)", width, height, fps, *opts.OutputFile, *opts.Codec)
	return v, nil
}

func (v *Video) run(w *io.PipeWriter, errc <-chan error) {
	var writeErr error
	for frame := range v.frames {
		if writeErr != nil {
			continue
		}
		if _, err := w.Write(frame.Pixels); err != nil {
			writeErr = fmt.Errorf("failed to write frame %d to ffmpeg: %w", frame.PTS, err)
		}
	}
	w.Close()
	err := <-errc
	if err != nil {
		err = fmt.Errorf("ffmpeg failed: %w", err)
	}
	v.done <- multierr.Append(writeErr, err)
}

func (v *Video) WriteFrame(img *image.RGBA) error {
	if v.closed {
		return fmt.Errorf("video is closed")
	}
	b := img.Bounds()
	if b.Dx() != v.width || b.Dy() != v.height {
		return fmt.Errorf("frame is %dx%d, video is %dx%d", b.Dx(), b.Dy(), v.width, v.height)
	}
	v.frames <- &Frame{Pixels: Packed(img), PTS: v.pts}
	v.pts++
	return nil
}

// Close flushes the queued frames and waits for ffmpeg to finish.
func (v *Video) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	close(v.frames)
	err := <-v.done
	log.Printf("Recording finished after %d frames", v.pts)
	return err
}

// PNG keeps the most recent frame and writes it on Close.
type PNG struct {
	Path string
	last *image.RGBA
}

func (p *PNG) WriteFrame(img *image.RGBA) error {
	p.last = img
	return nil
}

func (p *PNG) Close() error {
	if p.last == nil {
		return nil
	}
	img := p.last
	p.last = nil
	if err := WritePNG(p.Path, img); err != nil {
		return err
	}
	log.Printf("Wrote %s", p.Path)
	return nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// Packed returns the pixels of img without row padding, top row first.
func Packed(img *image.RGBA) []byte {
	b := img.Bounds()
	rowSize := b.Dx() * 4
	if img.Stride == rowSize && len(img.Pix) == rowSize*b.Dy() {
		return img.Pix
	}
	out := make([]byte, rowSize*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*rowSize:], img.Pix[start:start+rowSize])
	}
	return out
}
