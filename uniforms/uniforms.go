// Package uniforms implements the name → value table a pass is drawn with.
package uniforms

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a device texture handle. Devices define the concrete type; the
// set only needs identity and size.
type Texture interface {
	Size() (int, int)
}

// Kind is the GLSL type of a uniform.
type Kind int

const (
	Float Kind = iota
	Bool
	Vec2
	Vec3
	Mat4
	Sampler
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Mat4:
		return "mat4"
	case Sampler:
		return "sampler2D"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged uniform value. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	F    float32
	B    bool
	V2   mgl32.Vec2
	V3   mgl32.Vec3
	M4   mgl32.Mat4
	Tex  Texture
}

// Set maps uniform names to values. The zero value is not usable; call NewSet.
type Set struct {
	values map[string]Value
}

func NewSet() *Set {
	return &Set{values: make(map[string]Value)}
}

func (s *Set) SetFloat(name string, v float32)   { s.values[name] = Value{Kind: Float, F: v} }
func (s *Set) SetBool(name string, v bool)       { s.values[name] = Value{Kind: Bool, B: v} }
func (s *Set) SetVec2(name string, v mgl32.Vec2) { s.values[name] = Value{Kind: Vec2, V2: v} }
func (s *Set) SetVec3(name string, v mgl32.Vec3) { s.values[name] = Value{Kind: Vec3, V3: v} }
func (s *Set) SetMat4(name string, v mgl32.Mat4) { s.values[name] = Value{Kind: Mat4, M4: v} }
func (s *Set) SetTexture(name string, t Texture) { s.values[name] = Value{Kind: Sampler, Tex: t} }

// Get returns the raw value stored under name.
func (s *Set) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len is the number of uniforms in the set.
func (s *Set) Len() int { return len(s.values) }

// Declare registers a sampler with no texture bound yet, so Unbound reports it.
func (s *Set) Declare(name string) {
	if _, ok := s.values[name]; !ok {
		s.values[name] = Value{Kind: Sampler}
	}
}

// Float returns the named float, or 0 when absent or of another kind.
func (s *Set) Float(name string) float32 {
	if v, ok := s.values[name]; ok && v.Kind == Float {
		return v.F
	}
	return 0
}

func (s *Set) Bool(name string) bool {
	if v, ok := s.values[name]; ok && v.Kind == Bool {
		return v.B
	}
	return false
}

func (s *Set) Vec2(name string) mgl32.Vec2 {
	if v, ok := s.values[name]; ok && v.Kind == Vec2 {
		return v.V2
	}
	return mgl32.Vec2{}
}

func (s *Set) Vec3(name string) mgl32.Vec3 {
	if v, ok := s.values[name]; ok && v.Kind == Vec3 {
		return v.V3
	}
	return mgl32.Vec3{}
}

func (s *Set) Mat4(name string) mgl32.Mat4 {
	if v, ok := s.values[name]; ok && v.Kind == Mat4 {
		return v.M4
	}
	return mgl32.Ident4()
}

// Texture returns the bound texture, or nil when the sampler is unbound.
func (s *Set) Texture(name string) Texture {
	if v, ok := s.values[name]; ok && v.Kind == Sampler {
		return v.Tex
	}
	return nil
}

// Names returns the uniform names in sorted order. Devices bind samplers in
// this order so texture units are stable from frame to frame.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unbound lists declared samplers that have no texture.
func (s *Set) Unbound() []string {
	var out []string
	for _, name := range s.Names() {
		if v := s.values[name]; v.Kind == Sampler && v.Tex == nil {
			out = append(out, name)
		}
	}
	return out
}

// Samples reports whether t is bound to any sampler in the set.
func (s *Set) Samples(t Texture) bool {
	if t == nil {
		return false
	}
	for _, v := range s.values {
		if v.Kind == Sampler && v.Tex == t {
			return true
		}
	}
	return false
}
