package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translator *gst.ShaderTranslator
	initErr    error
	once       sync.Once
)

// GetTranslator returns the process-wide shader translator, creating it on
// first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			initErr = fmt.Errorf("failed to create shader translator: %w", initErr)
		}
	})
	return translator, initErr
}

// Shader is a translated stage: desktop GLSL 4.10 code and the mapping from
// source identifiers to the names the translator gave them.
type Shader struct {
	Code   string
	Mapped map[string]string
}

// Translate converts GLSL ES 3.00 source of the given stage ("vertex" or
// "fragment") to desktop GLSL 4.10.
func Translate(src, stage string) (*Shader, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, err
	}
	out, err := t.TranslateShader(src, stage, gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return nil, fmt.Errorf("failed to translate %s shader: %w", stage, err)
	}
	s := &Shader{Code: out.Code, Mapped: make(map[string]string, len(out.Variables))}
	for name, v := range out.Variables {
		s.Mapped[name] = v.MappedName
	}
	return s, nil
}

// Name returns the translated name of a source identifier, or the identifier
// itself when the translator did not report it.
func (s *Shader) Name(src string) string {
	if m, ok := s.Mapped[src]; ok && m != "" {
		return m
	}
	return src
}
