// Package renderer implements pipeline.Device on OpenGL 4.1 core.
package renderer

import (
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/gotopology/graphics"
	"github.com/richinsley/gotopology/pipeline"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/uniforms"
)

var glInitOnce sync.Once

var _ pipeline.Device = (*Renderer)(nil)

// Renderer owns the shared vertex state and the blit program. Every call
// must come from the thread the context is current on.
type Renderer struct {
	context graphics.Context

	quadVAO uint32
	quadVBO uint32

	planeVAO   uint32
	planeVBO   uint32
	offsetVBO  uint32
	offsetsLen int

	blitProgram uint32
	blitTexLoc  int32
}

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

// planeVertices is a 2×2 plane at z=0, interleaved position (xyz) and uv.
var planeVertices = []float32{
	-1, -1, 0, 0, 0,
	1, -1, 0, 1, 0,
	1, 1, 0, 1, 1,
	-1, -1, 0, 0, 0,
	1, 1, 0, 1, 1,
	-1, 1, 0, 0, 1,
}

// NewRenderer makes ctx current, loads the GL entry points and creates the
// shared geometry.
func NewRenderer(ctx graphics.Context) (*Renderer, error) {
	r := &Renderer{context: ctx}
	r.context.MakeCurrent()

	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	log.Printf("OpenGL version %s", gl.GoStr(gl.GetString(gl.VERSION)))

	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	gl.GenVertexArrays(1, &r.planeVAO)
	gl.GenBuffers(1, &r.planeVBO)
	gl.GenBuffers(1, &r.offsetVBO)
	gl.BindVertexArray(r.planeVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.planeVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(planeVertices)*4, gl.Ptr(planeVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(shader.PositionLocation)
	gl.VertexAttribPointer(shader.PositionLocation, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(shader.UVLocation)
	gl.VertexAttribPointer(shader.UVLocation, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))
	gl.BindBuffer(gl.ARRAY_BUFFER, r.offsetVBO)
	gl.EnableVertexAttribArray(shader.LayerOffsetLocation)
	gl.VertexAttribPointer(shader.LayerOffsetLocation, 1, gl.FLOAT, false, 4, gl.PtrOffset(0))
	gl.VertexAttribDivisor(shader.LayerOffsetLocation, 1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	var err error
	r.blitProgram, err = newProgram(shader.GenerateVertexShader(), shader.GetBlitFragmentShader(false))
	if err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("failed to create blit program: %w", err)
	}
	r.blitTexLoc = gl.GetUniformLocation(r.blitProgram, gl.Str("u_texture\x00"))
	return r, nil
}

// Shutdown releases the shared state. Targets, textures and programs are
// released by their owners.
func (r *Renderer) Shutdown() {
	if r.blitProgram != 0 {
		gl.DeleteProgram(r.blitProgram)
		r.blitProgram = 0
	}
	buffers := []uint32{r.quadVBO, r.planeVBO, r.offsetVBO}
	gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	vaos := []uint32{r.quadVAO, r.planeVAO}
	gl.DeleteVertexArrays(int32(len(vaos)), &vaos[0])
	r.quadVBO, r.planeVBO, r.offsetVBO, r.quadVAO, r.planeVAO = 0, 0, 0, 0, 0
}

func prepare(prog pipeline.Program, set *uniforms.Set, dst pipeline.Target) (*program, *target, error) {
	p, ok := prog.(*program)
	if !ok || p.destroyed {
		return nil, nil, fmt.Errorf("invalid program")
	}
	t, ok := dst.(*target)
	if !ok || t.destroyed {
		return nil, nil, fmt.Errorf("invalid target")
	}
	if set.Samples(t) {
		return nil, nil, pipeline.ErrFeedbackLoop
	}
	return p, t, nil
}

// Draw runs a fullscreen pass into dst.
func (r *Renderer) Draw(prog pipeline.Program, set *uniforms.Set, dst pipeline.Target) error {
	p, t, err := prepare(prog, set, dst)
	if err != nil {
		return err
	}
	if !p.pass.Fullscreen() {
		return fmt.Errorf("%s is not a fullscreen pass", p.pass)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(p.id)
	units, err := p.bind(set)
	if err != nil {
		unbindTextures(units)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return err
	}
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	unbindTextures(units)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

// DrawLayers clears dst and draws one plane instance per layer offset with
// depth testing, so the nearest surviving layer wins each pixel.
func (r *Renderer) DrawLayers(prog pipeline.Program, set *uniforms.Set, offsets []float32, dst pipeline.Target) error {
	p, t, err := prepare(prog, set, dst)
	if err != nil {
		return err
	}
	if p.pass != shader.Terrain {
		return fmt.Errorf("%s is not a layered pass", p.pass)
	}

	if len(offsets) > 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, r.offsetVBO)
		if len(offsets) != r.offsetsLen {
			gl.BufferData(gl.ARRAY_BUFFER, len(offsets)*4, gl.Ptr(offsets), gl.DYNAMIC_DRAW)
			r.offsetsLen = len(offsets)
		} else {
			gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(offsets)*4, gl.Ptr(offsets))
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	gl.ClearColor(0, 0, 0, 0)
	gl.ClearDepth(1)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(p.id)
	units, err := p.bind(set)
	if err == nil && len(offsets) > 0 {
		gl.BindVertexArray(r.planeVAO)
		gl.DrawArraysInstanced(gl.TRIANGLES, 0, int32(len(planeVertices)/5), int32(len(offsets)))
		gl.BindVertexArray(0)
	}
	unbindTextures(units)
	gl.Disable(gl.DEPTH_TEST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return err
}

// Present copies a target or texture to the window's framebuffer and swaps.
func (r *Renderer) Present(t uniforms.Texture) error {
	id, err := textureID("present", t)
	if err != nil {
		return err
	}
	fbWidth, fbHeight := r.context.GetFramebufferSize()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(r.blitProgram)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.Uniform1i(r.blitTexLoc, 0)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	r.context.EndFrame()
	return nil
}
