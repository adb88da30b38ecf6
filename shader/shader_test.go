package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allPasses = []Pass{Noise, Velocity, Divergence, Pressure, Gradient, Terrain, Wave}

func TestEveryPassHasSources(t *testing.T) {
	for _, p := range allPasses {
		frag := Fragment(p)
		assert.True(t, strings.HasPrefix(frag, "#version 300 es"), "%s fragment version", p)
		assert.Contains(t, frag, "void main()", "%s fragment entry point", p)
		assert.Contains(t, Vertex(p), "void main()", "%s vertex entry point", p)

		for _, name := range p.Samplers() {
			assert.Contains(t, frag, "uniform sampler2D "+name+";", "%s declares %s", p, name)
		}
	}
	assert.Empty(t, Fragment(Pass(99)))
	assert.Equal(t, "Pass(99)", Pass(99).String())
}

func TestTerrainIsTheOnlyInstancedPass(t *testing.T) {
	for _, p := range allPasses {
		assert.Equal(t, p != Terrain, p.Fullscreen(), p.String())
	}
	assert.Contains(t, Vertex(Terrain), "in float aLayerOffset;")
	assert.Equal(t, GenerateVertexShader(), Vertex(Noise))
}

func TestBlitFlip(t *testing.T) {
	assert.Contains(t, GetBlitFragmentShader(true), "1.0 - frag_uv.y")
	assert.NotContains(t, GetBlitFragmentShader(false), "1.0 - frag_uv.y")
}

func TestWaveIsNotInTheTopologyGraph(t *testing.T) {
	assert.NotContains(t, Passes, Wave)
	assert.Equal(t, "wave", Wave.String())
	assert.Equal(t, []string{"uNoiseTex"}, Wave.Samplers())
}
