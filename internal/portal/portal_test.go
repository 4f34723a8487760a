package portal

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"Portal3D/internal/config"
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	bank, err := NewBank(config.Default().Debug, 2)
	require.NoError(t, err)
	return bank
}

func TestNewBank(t *testing.T) {
	bank := newTestBank(t)

	assert.Same(t, bank.Baked.Shader, bank.PoleLight.Shader, "unlit materials share one program")
	assert.False(t, bank.Baked.Transparent)

	pole, ok := bank.PoleLight.Vec3("diffuse")
	require.True(t, ok)
	assert.Equal(t, renderer.SRGBToLinear([3]float32{1, 1, float32(0xe5) / 255}), pole)

	start, ok := bank.PortalLight.Vec3("uColorStart")
	require.True(t, ok)
	want, _ := config.ParseHex("#e675a6")
	assert.Equal(t, renderer.SRGBToLinear(want), start)

	for _, m := range bank.AnimatedMaterials() {
		v, ok := m.Float("uTime")
		assert.True(t, ok, m.Name)
		assert.Zero(t, v, m.Name)
	}

	ratio, _ := bank.Fireflies.Float("uPixelRatio")
	size, _ := bank.Fireflies.Float("uSize")
	assert.Equal(t, float32(2), ratio)
	assert.Equal(t, float32(100), size)
	assert.True(t, bank.Fireflies.Transparent)
	assert.Equal(t, renderer.AdditiveBlending, bank.Fireflies.Blending)
	assert.False(t, bank.Fireflies.DepthWrite)

	assert.Len(t, bank.Shaders(), 3)
}

func TestNewBankRejectsBadColor(t *testing.T) {
	cfg := config.Default().Debug
	cfg.ColorEnd = "#zzzzzz"
	_, err := NewBank(cfg, 1)
	assert.ErrorIs(t, err, config.ErrInvalidColor)
}

func TestShadersEmbedColorSpace(t *testing.T) {
	frag, err := shaderFS.ReadFile("shaders/portal.frag.glsl")
	require.NoError(t, err)

	src := withColorSpace(string(frag))
	assert.Regexp(t, `^#version 330 core\n`, src)
	assert.Contains(t, src, "vec4 linearToOutput(")

	plain := "#version 330 core\nvoid main() {}\n"
	assert.Equal(t, plain, withColorSpace(plain))
}

func TestAttachBakedTexture(t *testing.T) {
	bank := newTestBank(t)
	tex := &renderer.Texture{ID: 1, Name: "baked"}

	bank.AttachBakedTexture(tex)

	assert.Same(t, tex, bank.Baked.Texture)
	useMap, _ := bank.Baked.Bool("useMap")
	assert.True(t, useMap)
	assert.Nil(t, bank.PoleLight.Texture)
}

func TestGenerateFirefliesBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	field := GenerateFireflies(FirefliesCount, rng.Float32)

	require.Equal(t, 30, field.Len())
	require.Len(t, field.Positions, 90)
	for i := 0; i < field.Len(); i++ {
		x, y, z := field.Positions[i*3], field.Positions[i*3+1], field.Positions[i*3+2]
		assert.True(t, x >= -2 && x < 2, "x=%v", x)
		assert.True(t, y >= 0 && y < 2, "y=%v", y)
		assert.True(t, z >= -2 && z < 2, "z=%v", z)
		assert.True(t, field.Scales[i] >= 0 && field.Scales[i] < 1)
	}
}

func TestGenerateFirefliesMapping(t *testing.T) {
	values := []float32{0, 0.5, 0.75, 0.25}
	i := 0
	field := GenerateFireflies(1, func() float32 {
		v := values[i]
		i++
		return v
	})

	assert.Equal(t, []float32{-2, 1, 1}, field.Positions)
	assert.Equal(t, []float32{0.25}, field.Scales)

	mesh, err := field.Mesh()
	require.NoError(t, err)
	assert.Equal(t, renderer.Points, mesh.Mode)
	assert.Equal(t, int32(1), mesh.Count)
	assert.Equal(t, []float32{-2, 1, 1, 0.25}, mesh.InterleavedData)

	assert.Zero(t, GenerateFireflies(0, rand.Float32).Len())
}

func loadedScene() *scene.Node {
	loaded := scene.NewNode("Scene")
	for _, name := range []string{"merge", "poleLightA", "poleLightB", "portalLight", "bench"} {
		loaded.Add(scene.NewNode(name))
	}
	return loaded
}

func TestAssemble(t *testing.T) {
	bank := newTestBank(t)
	root := scene.NewNode("root")
	loaded := loadedScene()
	bench := loaded.FindChild("bench")
	benchMaterial := renderer.NewMaterial("default", renderer.NewBasicShader())
	bench.Material = benchMaterial

	require.NoError(t, Assemble(root, loaded, bank))

	assert.Same(t, bank.Baked, loaded.FindChild("merge").Material)
	assert.Same(t, bank.PoleLight, loaded.FindChild("poleLightA").Material)
	assert.Same(t, bank.PoleLight, loaded.FindChild("poleLightB").Material)
	assert.Same(t, bank.PortalLight, loaded.FindChild("portalLight").Material)
	assert.Same(t, benchMaterial, bench.Material, "unnamed nodes keep their material")

	require.Len(t, root.Children, 1)
	assert.Same(t, loaded, root.Children[0])

	want := mgl32.QuatRotate(float32(-0.9*math.Pi), mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, want.W, loaded.Rotation.W, 1e-6)
	assert.InDelta(t, want.V.Y(), loaded.Rotation.V.Y(), 1e-6)
}

func TestAssembleReportsEveryMissingNode(t *testing.T) {
	bank := newTestBank(t)
	root := scene.NewNode("root")
	loaded := scene.NewNode("Scene")
	merge := scene.NewNode("merge")
	loaded.Add(merge)
	// nested nodes do not count
	merge.Add(scene.NewNode("portalLight"))

	err := Assemble(root, loaded, bank)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingNode))
	for _, name := range []string{"poleLightA", "poleLightB", "portalLight"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.NotContains(t, err.Error(), `"merge"`)
	assert.Nil(t, merge.Material, "no material changes on failure")
	assert.Empty(t, root.Children)
	assert.Equal(t, mgl32.QuatIdent(), loaded.Rotation)
}

type recordingClear struct {
	colors [][3]float32
}

func (r *recordingClear) SetClearColor(c [3]float32) {
	r.colors = append(r.colors, c)
}

func TestDebugStateAppliesConfiguredBackground(t *testing.T) {
	bank := newTestBank(t)
	rec := &recordingClear{}

	state, err := NewDebugState(config.Default().Debug, bank, rec)
	require.NoError(t, err)

	bg, _ := config.ParseHex("#2a1d1d")
	require.Len(t, rec.colors, 1)
	assert.Equal(t, bg, rec.colors[0])
	assert.Equal(t, bg, state.Background)
}

func TestDebugStateSetters(t *testing.T) {
	bank := newTestBank(t)
	rec := &recordingClear{}
	state, err := NewDebugState(config.Default().Debug, bank, rec)
	require.NoError(t, err)

	state.SetBackground([3]float32{1, 0, 0})
	assert.Equal(t, [3]float32{1, 0, 0}, rec.colors[len(rec.colors)-1])

	state.SetColorStart([3]float32{0, 1, 0})
	start, _ := bank.PortalLight.Vec3("uColorStart")
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, start)

	state.SetColorEnd([3]float32{0.5, 0.5, 0.5})
	end, _ := bank.PortalLight.Vec3("uColorEnd")
	assert.InDelta(t, 0.214, end.X(), 1e-3)

	cases := []struct {
		in, want float32
	}{
		{250.4, 250},
		{-10, 0},
		{900, 500},
		{0, 0},
		{499.6, 500},
	}
	for _, c := range cases {
		state.SetParticleSize(c.in)
		size, _ := bank.Fireflies.Float("uSize")
		assert.Equal(t, c.want, size, "input %v", c.in)
		assert.Equal(t, c.want, state.ParticleSize)
	}
}
