package renderer

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/gotopology/pipeline"
	"github.com/richinsley/gotopology/shader"
	"github.com/richinsley/gotopology/translator"
	"github.com/richinsley/gotopology/uniforms"
)

// program is a linked pass. Uniforms are looked up by their source names and
// resolved through the names the translator assigned.
type program struct {
	pass      shader.Pass
	id        uint32
	names     *translator.Shader
	locations map[string]int32
	destroyed bool
}

func (p *program) Pass() shader.Pass { return p.pass }

func (p *program) Destroy() error {
	if p.destroyed {
		return errDestroyed
	}
	gl.DeleteProgram(p.id)
	p.destroyed = true
	return nil
}

// NewProgram translates the pass sources and links them. Fullscreen passes
// pair the translated fragment with the desktop quad vertex shader; the
// terrain translates both stages so their varyings agree.
func (r *Renderer) NewProgram(pass shader.Pass) (pipeline.Program, error) {
	if shader.Fragment(pass) == "" {
		return nil, fmt.Errorf("unknown pass %s", pass)
	}
	fs, err := translator.Translate(shader.Fragment(pass), "fragment")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pass, err)
	}

	names := &translator.Shader{Mapped: make(map[string]string, len(fs.Mapped))}
	for k, v := range fs.Mapped {
		names.Mapped[k] = v
	}
	vertexSource := shader.Vertex(pass)
	if !pass.Fullscreen() {
		vs, err := translator.Translate(vertexSource, "vertex")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pass, err)
		}
		vertexSource = vs.Code
		for k, v := range vs.Mapped {
			names.Mapped[k] = v
		}
	}

	id, err := newProgram(vertexSource, fs.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pass, err)
	}
	log.Printf("Compiled %s program", pass)
	return &program{
		pass:      pass,
		id:        id,
		names:     names,
		locations: make(map[string]int32),
	}, nil
}

// location returns the uniform location for a source name, -1 when the
// uniform was optimised out.
func (p *program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(p.names.Name(name)+"\x00"))
	p.locations[name] = loc
	return loc
}

// bind uploads every uniform in the set. Samplers take texture units in name
// order. It returns the number of units used so the caller can unbind them.
func (p *program) bind(set *uniforms.Set) (int, error) {
	unit := 0
	for _, name := range set.Names() {
		v, _ := set.Get(name)
		if v.Kind == uniforms.Sampler {
			id, err := textureID(name, v.Tex)
			if err != nil {
				return unit, err
			}
			loc := p.location(name)
			if loc < 0 {
				continue
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, id)
			gl.Uniform1i(loc, int32(unit))
			unit++
			continue
		}

		loc := p.location(name)
		if loc < 0 {
			continue
		}
		switch v.Kind {
		case uniforms.Float:
			gl.Uniform1f(loc, v.F)
		case uniforms.Bool:
			var b int32
			if v.B {
				b = 1
			}
			gl.Uniform1i(loc, b)
		case uniforms.Vec2:
			gl.Uniform2f(loc, v.V2[0], v.V2[1])
		case uniforms.Vec3:
			gl.Uniform3f(loc, v.V3[0], v.V3[1], v.V3[2])
		case uniforms.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, &v.M4[0])
		}
	}
	return unit, nil
}

func unbindTextures(units int) {
	for i := 0; i < units; i++ {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}
