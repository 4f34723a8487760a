package portal

import (
	"embed"
	"fmt"
	"strings"

	"Portal3D/internal/config"
	"Portal3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/*.glsl
var shaderFS embed.FS

// PoleLightColor is the emissive colour of both pole lamps.
const PoleLightColor = "#ffffe5"

// Bank holds every material the portal scene binds. Materials are shared by pointer.
type Bank struct {
	Baked       *renderer.Material
	PoleLight   *renderer.Material
	PortalLight *renderer.Material
	Fireflies   *renderer.Material
}

// NewBank builds the materials from the debug colours and the initial pixel ratio.
func NewBank(cfg config.Debug, pixelRatio float32) (*Bank, error) {
	colorStart, err := linearColor(cfg.ColorStart)
	if err != nil {
		return nil, fmt.Errorf("color_start: %w", err)
	}
	colorEnd, err := linearColor(cfg.ColorEnd)
	if err != nil {
		return nil, fmt.Errorf("color_end: %w", err)
	}
	pole, err := linearColor(PoleLightColor)
	if err != nil {
		return nil, err
	}

	portalShader, err := loadShader("portal")
	if err != nil {
		return nil, err
	}
	firefliesShader, err := loadShader("fireflies")
	if err != nil {
		return nil, err
	}

	// baked and pole light share the unlit program
	basic := renderer.NewBasicShader()

	b := &Bank{
		Baked:       renderer.NewBasicMaterial("baked", basic, mgl32.Vec3{1, 1, 1}),
		PoleLight:   renderer.NewBasicMaterial("poleLight", basic, pole),
		PortalLight: renderer.NewMaterial("portalLight", portalShader),
		Fireflies:   renderer.NewMaterial("fireflies", firefliesShader),
	}

	b.PortalLight.SetFloat("uTime", 0)
	b.PortalLight.SetVec3("uColorStart", colorStart)
	b.PortalLight.SetVec3("uColorEnd", colorEnd)

	b.Fireflies.SetFloat("uTime", 0)
	b.Fireflies.SetFloat("uPixelRatio", pixelRatio)
	b.Fireflies.SetFloat("uSize", clampSize(cfg.ParticleSize))
	b.Fireflies.Transparent = true
	b.Fireflies.Blending = renderer.AdditiveBlending
	b.Fireflies.DepthWrite = false

	return b, nil
}

// AttachBakedTexture gives the baked material its lighting texture.
func (b *Bank) AttachBakedTexture(tex *renderer.Texture) {
	b.Baked.SetTexture(tex)
}

// AnimatedMaterials are the materials whose uTime follows the clock.
func (b *Bank) AnimatedMaterials() []*renderer.Material {
	return []*renderer.Material{b.PortalLight, b.Fireflies}
}

// SetPixelRatio updates the fireflies point size scale.
func (b *Bank) SetPixelRatio(ratio float32) {
	b.Fireflies.SetFloat("uPixelRatio", ratio)
}

// Shaders lists the distinct programs, for release at shutdown.
func (b *Bank) Shaders() []*renderer.Shader {
	seen := make(map[*renderer.Shader]bool)
	var out []*renderer.Shader
	for _, m := range []*renderer.Material{b.Baked, b.PoleLight, b.PortalLight, b.Fireflies} {
		if !seen[m.Shader] {
			seen[m.Shader] = true
			out = append(out, m.Shader)
		}
	}
	return out
}

func linearColor(hex string) (mgl32.Vec3, error) {
	c, err := config.ParseHex(hex)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return renderer.SRGBToLinear(c), nil
}

func loadShader(name string) (*renderer.Shader, error) {
	vert, err := shaderFS.ReadFile("shaders/" + name + ".vert.glsl")
	if err != nil {
		return nil, fmt.Errorf("read %s vertex shader: %w", name, err)
	}
	frag, err := shaderFS.ReadFile("shaders/" + name + ".frag.glsl")
	if err != nil {
		return nil, fmt.Errorf("read %s fragment shader: %w", name, err)
	}
	return renderer.NewShader(name, string(vert), withColorSpace(string(frag))), nil
}

// withColorSpace inserts the output encoding helper after the #version line.
func withColorSpace(src string) string {
	if !strings.Contains(src, "linearToOutput") {
		return src
	}
	i := strings.Index(src, "\n")
	if i < 0 || !strings.HasPrefix(src, "#version") {
		return renderer.ColorSpaceChunk + src
	}
	return src[:i+1] + renderer.ColorSpaceChunk + src[i+1:]
}
