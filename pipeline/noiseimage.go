package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/richinsley/gotopology/assets"
	"github.com/richinsley/gotopology/noise"
	"github.com/richinsley/gotopology/params"
)

// noiseImage is the external noise texture of an effect. The procedural
// fallback is bound from the start and replaced once the fetch succeeds.
type noiseImage struct {
	dev      Device
	tex      Texture
	fallback bool
	pending  *assets.Pending
	cancel   context.CancelFunc
}

// openNoiseImage uploads the fallback and, when a URL is configured, starts
// the fetch. A nil loader gets a default one without a cache.
func openNoiseImage(ctx context.Context, dev Device, a params.Asset, loader *assets.Loader) (*noiseImage, error) {
	tex, err := dev.NewTexture(noise.Fallback(a.FallbackSize, a.FallbackSeed))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback noise texture: %w", err)
	}
	n := &noiseImage{dev: dev, tex: tex, fallback: true}
	if a.NoiseURL != "" {
		if loader == nil {
			loader = assets.NewLoader("")
		}
		var loadCtx context.Context
		loadCtx, n.cancel = context.WithCancel(ctx)
		n.pending = loader.Start(loadCtx, a.NoiseURL, a.Timeout())
	}
	return n, nil
}

// poll swaps the fetched image in once it has arrived and reports whether
// the texture changed. Failures are logged and the fallback stays bound.
func (n *noiseImage) poll() bool {
	if n.pending == nil {
		return false
	}
	img, ready, err := n.pending.Poll()
	if !ready {
		return false
	}
	n.pending = nil
	if err != nil {
		log.Printf("Noise image unavailable, keeping procedural noise: %v", err)
		return false
	}
	tex, err := n.dev.NewTexture(img)
	if err != nil {
		log.Printf("Failed to upload noise image, keeping procedural noise: %v", err)
		return false
	}
	if err := n.tex.Destroy(); err != nil {
		log.Printf("Failed to release fallback noise texture: %v", err)
	}
	n.tex = tex
	n.fallback = false
	b := img.Bounds()
	log.Printf("Noise image loaded (%dx%d)", b.Dx(), b.Dy())
	return true
}

// Destroy cancels a running fetch and releases the texture.
func (n *noiseImage) Destroy() error {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.pending = nil
	if n.tex == nil {
		return nil
	}
	err := n.tex.Destroy()
	n.tex = nil
	return err
}
