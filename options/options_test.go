package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o, _, err := Parse("test", nil)
	require.NoError(t, err)
	assert.Equal(t, "window", *o.Mode)
	assert.Equal(t, "gl", *o.Backend)
	assert.Equal(t, "topology", *o.Effect)
	assert.Equal(t, 1280, *o.Width)
	assert.Equal(t, 100.0, *o.ScrollStep)
	assert.False(t, o.IsImage())
}

func TestRecordFlags(t *testing.T) {
	o, _, err := Parse("test", []string{
		"-mode", "record", "-backend", "software", "-output", "frame.PNG",
		"-duration", "0.5", "-fps", "30", "-scroll", "1500", "-orbit", "-seed", "7",
	})
	require.NoError(t, err)
	assert.True(t, o.IsImage())
	assert.Equal(t, 15, o.TotalFrames())
	assert.Equal(t, 1500.0, *o.Scroll)
	assert.True(t, *o.Orbit)
	assert.Equal(t, uint64(7), *o.Seed)

	o, _, err = Parse("test", []string{"-mode", "record", "-headless"})
	require.NoError(t, err)
	assert.True(t, *o.Headless)
}

func TestImageRecordsAtLeastOneFrame(t *testing.T) {
	o, _, err := Parse("test", []string{"-mode", "record", "-output", "out.png", "-duration", "0.001", "-fps", "60"})
	require.NoError(t, err)
	assert.Equal(t, 1, o.TotalFrames())
}

func TestValidation(t *testing.T) {
	for _, args := range [][]string{
		{"-mode", "stream"},
		{"-backend", "vulkan"},
		{"-effect", "rain"},
		{"-codec", "vp9"},
		{"-width", "0"},
		{"-mode", "record", "-fps", "0"},
		{"-mode", "record", "-duration", "0"},
		{"-mode", "record", "-output", ""},
		{"-backend", "software"},
		{"-scroll-step", "-1"},
		{"-headless"},
		{"-headless", "-mode", "record", "-backend", "software"},
	} {
		_, _, err := Parse("test", args)
		assert.Error(t, err, "%v", args)
	}
}

func TestHelpSkipsValidation(t *testing.T) {
	o, _, err := Parse("test", []string{"-help", "-mode", "bogus"})
	require.NoError(t, err)
	assert.True(t, *o.Help)
}

func TestEffects(t *testing.T) {
	for _, effect := range []string{"topology", "wave", "starfield"} {
		o, _, err := Parse("test", []string{"-effect", effect, "-mode", "record", "-backend", "software"})
		require.NoError(t, err, effect)
		assert.Equal(t, effect, *o.Effect)
	}
}
