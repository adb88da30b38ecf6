package main

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gotopology/input"
	"github.com/richinsley/gotopology/pipeline"
)

type frameScene struct {
	size image.Point
	err  error
}

func (s *frameScene) Render(float32, input.Snapshot) (*image.RGBA, error) {
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rectangle{Max: s.size}), nil
}

func (s *frameScene) Resize(width, height int) error {
	s.size = image.Pt(width, height)
	return nil
}

func (s *frameScene) Close() error { return nil }

type uploadedTexture struct {
	w, h      int
	destroyed int
}

func (t *uploadedTexture) Size() (int, int) { return t.w, t.h }
func (t *uploadedTexture) Destroy() error {
	t.destroyed++
	return nil
}

type recordingUploader struct {
	created []*uploadedTexture
	updates int
}

func (u *recordingUploader) NewTexture(img image.Image) (pipeline.Texture, error) {
	b := img.Bounds()
	t := &uploadedTexture{w: b.Dx(), h: b.Dy()}
	u.created = append(u.created, t)
	return t, nil
}

func (u *recordingUploader) UpdateTexture(pipeline.Texture, image.Image) error {
	u.updates++
	return nil
}

func TestUploadFrame(t *testing.T) {
	s := &frameScene{size: image.Pt(4, 3)}
	up := &recordingUploader{}

	tex, err := uploadFrame(s, up, nil, 0, input.Snapshot{})
	require.NoError(t, err)
	require.Len(t, up.created, 1)

	tex, err = uploadFrame(s, up, tex, 0.1, input.Snapshot{})
	require.NoError(t, err)
	assert.Len(t, up.created, 1, "same size updates in place")
	assert.Equal(t, 1, up.updates)

	require.NoError(t, s.Resize(8, 6))
	tex, err = uploadFrame(s, up, tex, 0.2, input.Snapshot{})
	require.NoError(t, err)
	require.Len(t, up.created, 2)
	assert.Equal(t, 1, up.created[0].destroyed)
	w, h := tex.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)
}

func TestUploadFrameReturnsRenderError(t *testing.T) {
	s := &frameScene{size: image.Pt(4, 3)}
	up := &recordingUploader{}
	tex, err := uploadFrame(s, up, nil, 0, input.Snapshot{})
	require.NoError(t, err)

	s.err = errors.New("render failed")
	got, err := uploadFrame(s, up, tex, 0.1, input.Snapshot{})
	assert.ErrorIs(t, err, s.err)
	assert.Same(t, tex, got, "the shown texture is kept")
	assert.Zero(t, up.updates)
	assert.Zero(t, up.created[0].destroyed)
}
