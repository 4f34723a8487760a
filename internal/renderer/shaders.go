package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// =============================================================
//
//	Shaders
//
// =============================================================
type Shader struct {
	Name           string
	vertexSource   string
	fragmentSource string
	program        uint32
	isCompiled     bool
	uniforms       *UniformCache
}

// NewShader keeps the sources; the program is built on first use by the renderer.
func NewShader(name, vertexSource, fragmentSource string) *Shader {
	return &Shader{
		Name:           name,
		vertexSource:   vertexSource,
		fragmentSource: fragmentSource,
	}
}

func (shader *Shader) IsCompiled() bool {
	return shader.isCompiled
}

func (shader *Shader) Program() uint32 {
	return shader.program
}

// Compile builds and links the program. Requires a current GL context.
func (shader *Shader) Compile() error {
	if shader.isCompiled {
		return nil
	}
	vs, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("shader %q: %w", shader.Name, err)
	}
	fs, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return fmt.Errorf("shader %q: %w", shader.Name, err)
	}
	program, err := GenShaderProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("shader %q: %w", shader.Name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	shader.isCompiled = true
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Delete() {
	if shader.isCompiled {
		gl.DeleteProgram(shader.program)
		shader.isCompiled = false
		shader.program = 0
		shader.uniforms = nil
	}
}

func (shader *Shader) SetVec3(name string, value mgl32.Vec3) {
	shader.uniforms.SetVec3(name, value)
}

func (shader *Shader) SetFloat(name string, value float32) {
	shader.uniforms.SetFloat(name, value)
}

func (shader *Shader) SetInt(name string, value int32) {
	shader.uniforms.SetInt(name, value)
}

func (shader *Shader) SetBool(name string, value bool) {
	var v int32
	if value {
		v = 1
	}
	shader.uniforms.SetInt(name, v)
}

func (shader *Shader) SetMat4(name string, value mgl32.Mat4) {
	shader.uniforms.SetMat4(name, value)
}

// GenShader compiles one stage and returns the GL info log on failure.
func GenShader(source string, shaderType uint32) (uint32, error) {
	if !strings.HasSuffix(source, "\x00") {
		source += "\x00"
	}
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		stage := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			stage = "fragment"
		}
		return 0, fmt.Errorf("compile %s shader: %s", stage, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

// ColorSpaceChunk encodes linear shader output for an sRGB display.
// Fragment shaders paste it after their #version line.
const ColorSpaceChunk = `
vec4 linearToOutput(vec4 value) {
    return vec4(mix(
        pow(value.rgb, vec3(0.41666)) * 1.055 - vec3(0.055),
        value.rgb * 12.92,
        vec3(lessThanEqual(value.rgb, vec3(0.0031308)))
    ), value.a);
}
`

var basicVertexShaderSource = `#version 330 core

layout(location = 0) in vec3 position;
layout(location = 1) in vec2 uv;
layout(location = 2) in vec3 normal;

uniform mat4 modelMatrix;
uniform mat4 viewMatrix;
uniform mat4 projectionMatrix;

out vec2 vUv;

void main() {
    vUv = uv;
    gl_Position = projectionMatrix * viewMatrix * modelMatrix * vec4(position, 1.0);
}
`

var basicFragmentShaderSource = `#version 330 core
` + ColorSpaceChunk + `
in vec2 vUv;

uniform vec3 diffuse;
uniform bool useMap;
uniform sampler2D map;

out vec4 FragColor;

void main() {
    vec3 color = diffuse;
    if (useMap) {
        color *= texture(map, vUv).rgb;
    }
    FragColor = linearToOutput(vec4(color, 1.0));
}
`

// NewBasicShader is an unlit colour/texture shader.
func NewBasicShader() *Shader {
	return NewShader("basic", basicVertexShaderSource, basicFragmentShaderSource)
}
