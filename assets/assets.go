// Package assets fetches the external noise image without blocking the frame
// loop.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	// Blank imports for image decoders so image.Decode can handle them.
	_ "image/jpeg"
	_ "image/png"
)

var httpClient = &http.Client{
	Transport: &headerTransport{Transport: http.DefaultTransport},
}

type headerTransport struct {
	Transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "gotopology")
	return t.Transport.RoundTrip(req)
}

// Loader resolves image sources. Remote images are cached in CacheDir when
// it is set.
type Loader struct {
	Client   *http.Client
	CacheDir string
}

func NewLoader(cacheDir string) *Loader {
	return &Loader{Client: httpClient, CacheDir: cacheDir}
}

// Fetch loads and decodes the image at src, which may be an http(s) URL, a
// file:// URL or a plain path.
func (l *Loader) Fetch(ctx context.Context, src string) (image.Image, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
		return decodeFile(src)
	}
	if u.Scheme == "file" {
		return decodeFile(u.Path)
	}

	cachePath := ""
	if l.CacheDir != "" {
		cachePath = filepath.Join(l.CacheDir, u.Hostname()+"_"+filepath.Base(u.Path))
		if img, err := decodeFile(cachePath); err == nil {
			return img, nil
		}
	}

	data, err := l.download(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode downloaded image from %s: %w", src, err)
	}
	if cachePath != "" {
		if err := os.WriteFile(cachePath, data, 0644); err != nil {
			log.Printf("Warning: failed to save image to cache at %s: %v", cachePath, err)
		}
	}
	return img, nil
}

func (l *Loader) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = httpClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load %s, status code: %d", src, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data from %s: %w", src, err)
	}
	return data, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Pending is an image fetch running in the background.
type Pending struct {
	done   chan struct{}
	cancel context.CancelFunc
	img    image.Image
	err    error
}

// Start fetches src in its own goroutine. A non-positive timeout means no
// deadline beyond ctx.
func (l *Loader) Start(ctx context.Context, src string, timeout time.Duration) *Pending {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	p := &Pending{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(p.done)
		defer cancel()
		p.img, p.err = l.Fetch(ctx, src)
	}()
	return p
}

// Poll reports the result if the fetch has finished. It never blocks.
func (p *Pending) Poll() (img image.Image, ready bool, err error) {
	select {
	case <-p.done:
		return p.img, true, p.err
	default:
		return nil, false, nil
	}
}

// Done is closed once the fetch has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Cancel abandons the fetch. Poll still reports the (cancelled) result once
// the goroutine exits.
func (p *Pending) Cancel() { p.cancel() }

// CacheDir returns (and creates) the per-user cache directory for subdir.
func CacheDir(subdir string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
		if base == "" {
			return "", fmt.Errorf("LOCALAPPDATA environment variable not set")
		}
	case "darwin":
		home := os.Getenv("HOME")
		if home == "" {
			return "", fmt.Errorf("HOME environment variable not set")
		}
		base = filepath.Join(home, "Library", "Caches")
	default: // linux, bsd, etc.
		base = os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home := os.Getenv("HOME")
			if home == "" {
				return "", fmt.Errorf("HOME environment variable not set")
			}
			base = filepath.Join(home, ".cache")
		}
	}

	dir := filepath.Join(base, "gotopology", strings.TrimSpace(subdir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory at %s: %w", dir, err)
	}
	return dir, nil
}
