package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type BlendMode int

const (
	NormalBlending BlendMode = iota
	AdditiveBlending
)

// Material pairs a shader with the uniform values it is drawn with.
// Values live on the Go side and are pushed to the program at draw time.
type Material struct {
	// HOT DATA
	Shader      *Shader
	Uniforms    map[string]interface{}
	Texture     *Texture
	Transparent bool
	Blending    BlendMode
	DepthWrite  bool

	// COLD DATA
	Name string
}

func NewMaterial(name string, shader *Shader) *Material {
	return &Material{
		Name:       name,
		Shader:     shader,
		Uniforms:   make(map[string]interface{}),
		DepthWrite: true,
	}
}

// NewBasicMaterial is an unlit material with a linear diffuse colour.
func NewBasicMaterial(name string, shader *Shader, diffuse mgl32.Vec3) *Material {
	m := NewMaterial(name, shader)
	m.SetVec3("diffuse", diffuse)
	m.SetBool("useMap", false)
	return m
}

func (m *Material) SetFloat(name string, v float32) {
	m.Uniforms[name] = v
}

func (m *Material) Float(name string) (float32, bool) {
	v, ok := m.Uniforms[name].(float32)
	return v, ok
}

func (m *Material) SetVec3(name string, v mgl32.Vec3) {
	m.Uniforms[name] = v
}

func (m *Material) Vec3(name string) (mgl32.Vec3, bool) {
	v, ok := m.Uniforms[name].(mgl32.Vec3)
	return v, ok
}

func (m *Material) SetBool(name string, v bool) {
	m.Uniforms[name] = v
}

func (m *Material) Bool(name string) (bool, bool) {
	v, ok := m.Uniforms[name].(bool)
	return v, ok
}

// SetTexture binds tex as the "map" sampler and switches useMap on.
func (m *Material) SetTexture(tex *Texture) {
	m.Texture = tex
	m.SetBool("useMap", tex != nil)
}

func (m *Material) apply() error {
	if m.Texture != nil {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, m.Texture.ID)
		m.Shader.SetInt("map", 0)
	}
	for name, value := range m.Uniforms {
		switch v := value.(type) {
		case float32:
			m.Shader.SetFloat(name, v)
		case mgl32.Vec3:
			m.Shader.SetVec3(name, v)
		case bool:
			m.Shader.SetBool(name, v)
		case int32:
			m.Shader.SetInt(name, v)
		case mgl32.Mat4:
			m.Shader.SetMat4(name, v)
		default:
			return fmt.Errorf("material %q: unsupported uniform %q of type %T", m.Name, name, value)
		}
	}
	return nil
}
