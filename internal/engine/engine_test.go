package engine

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Portal3D/internal/config"
	"Portal3D/internal/controls"
	"Portal3D/internal/loader"
	"Portal3D/internal/portal"
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockIsMonotonic(t *testing.T) {
	base := time.Unix(100, 0)
	readings := []time.Time{base, base.Add(time.Second), base.Add(500 * time.Millisecond), base.Add(3 * time.Second)}
	i := 0
	clock := NewClock(func() time.Time {
		r := readings[i]
		i++
		return r
	})

	assert.Equal(t, 1.0, clock.Elapsed())
	assert.Equal(t, 1.0, clock.Elapsed(), "a reading from the past does not rewind")
	assert.Equal(t, 3.0, clock.Elapsed())
}

func TestClockStartsAtZero(t *testing.T) {
	now := time.Unix(0, 0)
	clock := NewClock(func() time.Time { return now })
	assert.Zero(t, clock.Elapsed())
}

type recordingControls struct {
	calls *[]string
}

func (r recordingControls) Update() bool {
	*r.calls = append(*r.calls, "controls")
	return false
}

func TestTickOrder(t *testing.T) {
	now := time.Unix(0, 0)
	clock := NewClock(func() time.Time { return now })
	mat := renderer.NewMaterial("portal", renderer.NewBasicShader())

	var calls []string
	driver := &FrameDriver{
		Clock:    clock,
		Animated: []*renderer.Material{mat},
		Controls: recordingControls{calls: &calls},
		Draw: func() error {
			v, _ := mat.Float("uTime")
			calls = append(calls, "draw")
			assert.Equal(t, float32(2.5), v, "uniforms are written before drawing")
			return nil
		},
	}

	now = now.Add(2500 * time.Millisecond)
	require.NoError(t, driver.Tick())

	assert.Equal(t, []string{"controls", "draw"}, calls)
	assert.Equal(t, uint64(1), driver.Frames())
}

type fakeSurface struct {
	closeAfter int
	swaps      int
	polls      int
}

func (s *fakeSurface) ShouldClose() bool { return s.swaps >= s.closeAfter }
func (s *fakeSurface) SwapBuffers() { s.swaps++ }
func (s *fakeSurface) PollEvents() { s.polls++ }

func TestRunUntilClose(t *testing.T) {
	surface := &fakeSurface{closeAfter: 3}
	var before int
	driver := &FrameDriver{
		Clock:  NewClock(nil),
		Before: func() error { before++; return nil },
	}

	require.NoError(t, driver.Run(context.Background(), surface))

	assert.Equal(t, 3, surface.swaps)
	assert.Equal(t, 3, surface.polls)
	assert.Equal(t, 3, before)
	assert.Equal(t, uint64(3), driver.Frames())
}

func TestRunStopsOnError(t *testing.T) {
	surface := &fakeSurface{closeAfter: 100}
	boom := errors.New("boom")
	frames := 0
	driver := &FrameDriver{
		Clock: NewClock(nil),
		Before: func() error {
			frames++
			if frames == 2 {
				return boom
			}
			return nil
		},
	}

	err := driver.Run(context.Background(), surface)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, surface.swaps)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	surface := &fakeSurface{closeAfter: 100}
	driver := &FrameDriver{Clock: NewClock(nil)}
	driver.Draw = func() error {
		if driver.Frames() == 2 {
			cancel()
		}
		return nil
	}

	require.NoError(t, driver.Run(ctx, surface))
	assert.Equal(t, 2, surface.swaps)
}

type fakeSizer struct {
	width, height int
	ratio         float64
	calls         int
}

func (s *fakeSizer) SetSize(width, height int, ratio float64) {
	s.width, s.height, s.ratio = width, height, ratio
	s.calls++
}

type fakeHeight struct{ height int }

func (f *fakeHeight) SetViewportHeight(h int) { f.height = h }

type fakeRatio struct{ ratio float32 }

func (f *fakeRatio) SetPixelRatio(r float32) { f.ratio = r }

func TestViewportResize(t *testing.T) {
	cam := renderer.NewPerspectiveCamera(45, 1, 0.1, 100)
	surface := &fakeSizer{}
	height := &fakeHeight{}
	points := &fakeRatio{}
	v := NewViewport(cam, surface, height, points, 2)

	require.True(t, v.Resize(800, 600, 3))

	assert.InDelta(t, 1.3333, cam.AspectRatio, 1e-4)
	assert.Equal(t, 2.0, v.PixelRatio, "device ratio is capped")
	assert.Equal(t, 800, surface.width)
	assert.Equal(t, 600, surface.height)
	assert.Equal(t, 2.0, surface.ratio)
	assert.Equal(t, 600, height.height)
	assert.Equal(t, float32(2), points.ratio)

	before := cam.Projection
	assert.False(t, v.Resize(0, 600, 1), "minimised windows are ignored")
	assert.False(t, v.Resize(800, 0, 1))
	assert.Equal(t, before, cam.Projection)
	assert.Equal(t, 1, surface.calls)
}

func TestClampPixelRatio(t *testing.T) {
	assert.Equal(t, 1.0, ClampPixelRatio(1, 2))
	assert.Equal(t, 1.5, ClampPixelRatio(1.5, 2))
	assert.Equal(t, 2.0, ClampPixelRatio(3, 2))
	assert.Equal(t, 1.0, ClampPixelRatio(0, 2))
	assert.Equal(t, 1.0, ClampPixelRatio(math.NaN(), 2))
}

type fakeUI struct {
	wantMouse    bool
	wantKeyboard bool
	buttons      int
	scrolls      int
	keys         int
}

func (u *fakeUI) MouseButton(glfw.MouseButton, glfw.Action)   { u.buttons++ }
func (u *fakeUI) Scroll(x, y float64)                         { u.scrolls++ }
func (u *fakeUI) Key(glfw.Key, glfw.Action, glfw.ModifierKey) { u.keys++ }
func (u *fakeUI) Char(rune)                                   {}
func (u *fakeUI) WantCaptureMouse() bool                      { return u.wantMouse }
func (u *fakeUI) WantCaptureKeyboard() bool                   { return u.wantKeyboard }

type fakePanel struct{ toggles int }

func (p *fakePanel) Toggle() { p.toggles++ }

func newRouter(ui *fakeUI) (*inputRouter, *controls.Orbit, *renderer.Camera) {
	cam := renderer.NewPerspectiveCamera(45, 1, 0.1, 100)
	cam.SetPosition(4, 2, 4)
	orbit := controls.NewOrbit(cam)
	orbit.SetViewportHeight(600)
	return &inputRouter{ui: ui, orbit: orbit}, orbit, cam
}

func TestRouterDragsOrbit(t *testing.T) {
	ui := &fakeUI{}
	r, orbit, _ := newRouter(ui)

	r.mouseButton(glfw.MouseButtonLeft, glfw.Press, 10, 10)
	assert.Equal(t, controls.DragRotate, orbit.Dragging())
	r.mouseButton(glfw.MouseButtonRight, glfw.Press, 10, 10)
	assert.Equal(t, controls.DragRotate, orbit.Dragging(), "second button does not replace the drag")
	r.mouseButton(glfw.MouseButtonRight, glfw.Release, 10, 10)
	assert.Equal(t, controls.DragRotate, orbit.Dragging())
	r.cursorMove(70, 10)
	r.mouseButton(glfw.MouseButtonLeft, glfw.Release, 70, 10)
	assert.Equal(t, controls.DragNone, orbit.Dragging())
	assert.True(t, orbit.Update())

	r.mouseButton(glfw.MouseButtonRight, glfw.Press, 0, 0)
	assert.Equal(t, controls.DragPan, orbit.Dragging())
	assert.Equal(t, 5, ui.buttons, "the panel sees every button event")
}

func TestRouterRespectsPanelCapture(t *testing.T) {
	ui := &fakeUI{wantMouse: true}
	r, orbit, cam := newRouter(ui)
	distance := cam.Position.Len()

	r.mouseButton(glfw.MouseButtonLeft, glfw.Press, 10, 10)
	assert.Equal(t, controls.DragNone, orbit.Dragging())

	r.scroll(0, 1)
	orbit.Update()
	assert.InDelta(t, distance, cam.Position.Len(), 1e-4)
	assert.Equal(t, 1, ui.scrolls)

	ui.wantMouse = false
	r.scroll(0, 1)
	orbit.Update()
	assert.InDelta(t, distance*0.95, cam.Position.Len(), 1e-4)
}

func TestRouterPanelKey(t *testing.T) {
	ui := &fakeUI{}
	panel := &fakePanel{}
	r, _, _ := newRouter(ui)
	r.panel = panel

	r.key(PanelKey, glfw.Press, 0)
	r.key(PanelKey, glfw.Release, 0)
	r.key(PanelKey, glfw.Repeat, 0)
	assert.Equal(t, 1, panel.toggles)

	r.key(PanelKey, glfw.Press, glfw.ModControl)
	r.key(glfw.KeyJ, glfw.Press, 0)
	assert.Equal(t, 1, panel.toggles)

	// typing into a focused widget does not hide the panel
	ui.wantKeyboard = true
	r.key(PanelKey, glfw.Press, 0)
	assert.Equal(t, 1, panel.toggles)

	ui.wantKeyboard = false
	r.key(PanelKey, glfw.Press, 0)
	assert.Equal(t, 2, panel.toggles, "the panel comes back")
	assert.Equal(t, 7, ui.keys, "the UI sees every key event")
}

func TestOrbitOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Controls
	cfg.Target = [3]float32{0, 1, 0}
	cam := renderer.NewPerspectiveCamera(45, 1, 0.1, 100)
	cam.SetPosition(4, 2, 4)

	orbit := controls.NewOrbit(cam, orbitOptions(cfg)...)

	assert.Equal(t, mgl32.Vec3{0, 1, 0}, orbit.Target)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, cam.Target)
	assert.True(t, orbit.EnableDamping)
	assert.Equal(t, cfg.DampingFactor, orbit.DampingFactor)

	cfg.Damping = false
	orbit = controls.NewOrbit(cam, orbitOptions(cfg)...)
	assert.False(t, orbit.EnableDamping)
}

func TestColorRef(t *testing.T) {
	assert.Equal(t, uint32(0x0000FF), colorRef([3]float32{1, 0, 0}))
	assert.Equal(t, uint32(0xFF0000), colorRef([3]float32{0, 0, 1}))
	assert.Equal(t, uint32(0x1d1d2a), colorRef([3]float32{42.0 / 255, 29.0 / 255, 29.0 / 255}))
	assert.Equal(t, uint32(0x00FF00), colorRef([3]float32{-1, 2, 0}))
}

func portalScene() *scene.Node {
	loaded := scene.NewNode("Scene")
	for _, name := range []string{portal.NodeBaked, portal.NodePoleLightA, portal.NodePoleLightB, portal.NodePortalLight} {
		loaded.Add(scene.NewNode(name))
	}
	return loaded
}

func TestInstallThenResize(t *testing.T) {
	cfg := config.Default()
	bank, err := portal.NewBank(cfg.Debug, 1)
	require.NoError(t, err)
	root, err := NewRoot(bank, rand.New(rand.NewSource(1)).Float32)
	require.NoError(t, err)
	tex := &renderer.Texture{ID: 7, Name: BakedTextureName}
	loaded := portalScene()

	require.NoError(t, Install(root, bank, loaded, tex))

	require.Len(t, root.Children, 2)
	fireflies := root.Children[0]
	require.NotNil(t, fireflies.Mesh)
	assert.Equal(t, renderer.Points, fireflies.Mesh.Mode)
	assert.Equal(t, portal.FirefliesCount, fireflies.Mesh.VertexCount())
	assert.Equal(t, 30, fireflies.Mesh.VertexCount())
	assert.Same(t, bank.Fireflies, fireflies.Material)

	assert.Same(t, loaded, root.Children[1])
	assert.Equal(t, "Scene", loaded.Name)
	want := mgl32.QuatRotate(float32(-math.Pi*0.9), mgl32.Vec3{0, 1, 0})
	assert.True(t, want.ApproxEqual(loaded.Rotation), "loaded scene is turned -0.9pi about Y")
	assert.Same(t, tex, bank.Baked.Texture)
	assert.Same(t, bank.Baked, loaded.FindChild(portal.NodeBaked).Material)

	cam := renderer.NewPerspectiveCamera(cfg.Camera.Fov, 1, cfg.Camera.Near, cfg.Camera.Far)
	v := NewViewport(cam, &fakeSizer{}, nil, bank, cfg.Render.MaxPixelRatio)
	require.True(t, v.Resize(800, 600, 1))

	assert.InDelta(t, 1.333, cam.AspectRatio, 1e-3)
	ratio, _ := bank.Fireflies.Float("uPixelRatio")
	assert.Equal(t, float32(1), ratio)
}

func TestInstallFailsOnIncompleteScene(t *testing.T) {
	bank, err := portal.NewBank(config.Default().Debug, 1)
	require.NoError(t, err)
	root, err := NewRoot(bank, rand.Float32)
	require.NoError(t, err)

	err = Install(root, bank, scene.NewNode("Scene"), &renderer.Texture{})
	assert.ErrorIs(t, err, portal.ErrMissingNode)
	assert.Len(t, root.Children, 1, "only the fireflies")

	assert.Error(t, Install(root, bank, nil, nil))
}

func TestShadersAreDistinct(t *testing.T) {
	bank, err := portal.NewBank(config.Default().Debug, 1)
	require.NoError(t, err)
	root := scene.NewNode("root")
	extra := scene.NewNode("extra")
	extra.Material = renderer.NewMaterial("extra", renderer.NewBasicShader())
	root.Add(extra)
	other := scene.NewNode("other")
	other.Material = bank.PortalLight
	root.Add(other)

	assert.Len(t, shaders(root, bank), 4)
	assert.Empty(t, shaders(nil, nil))
}

func writeAssets(t *testing.T, nodes []string) config.Assets {
	t.Helper()
	var nodeList []interface{}
	var roots []int
	for i, name := range nodes {
		nodeList = append(nodeList, map[string]interface{}{"name": name})
		roots = append(roots, i)
	}
	return writeAssetDoc(t, map[string]interface{}{
		"asset":  map[string]interface{}{"version": "2.0"},
		"scene":  0,
		"scenes": []interface{}{map[string]interface{}{"name": "Scene", "nodes": roots}},
		"nodes":  nodeList,
	})
}

func writeAssetDoc(t *testing.T, doc map[string]interface{}) config.Assets {
	t.Helper()
	dir := t.TempDir()

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portal.gltf"), data, 0o644))

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "baked.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return config.Assets{BasePath: dir, Scene: "portal.gltf", BakedTexture: "baked.png", DecoderPath: "draco/"}
}

func TestCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Assets = writeAssets(t, []string{"merge", "poleLightA", "poleLightB", "portalLight", "bench"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, Check(ctx, cfg))
}

func TestCheckReportsMissingNodes(t *testing.T) {
	cfg := config.Default()
	cfg.Assets = writeAssets(t, []string{"merge", "poleLightA"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Check(ctx, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrMissingNode)
	assert.Contains(t, err.Error(), "portalLight")
}

func TestCheckUsesDracoDecoder(t *testing.T) {
	cfg := config.Default()
	cfg.Assets = writeAssetDoc(t, map[string]interface{}{
		"asset":  map[string]interface{}{"version": "2.0"},
		"scene":  0,
		"scenes": []interface{}{map[string]interface{}{"name": "Scene", "nodes": []int{0}}},
		"nodes":  []interface{}{map[string]interface{}{"name": "merge", "mesh": 0}},
		"meshes": []interface{}{map[string]interface{}{
			"primitives": []interface{}{map[string]interface{}{
				"attributes": map[string]int{"POSITION": 0},
				"extensions": map[string]interface{}{
					loader.ExtDraco: map[string]interface{}{"bufferView": 0, "attributes": map[string]int{"POSITION": 0}},
				},
			}},
		}},
		"extensionsUsed": []string{loader.ExtDraco},
		"buffers": []interface{}{map[string]interface{}{
			"byteLength": 4,
			"uri":        "data:application/octet-stream;base64,AAAAAA==",
		}},
		"bufferViews": []interface{}{map[string]interface{}{"buffer": 0, "byteLength": 4}},
		"accessors":   []interface{}{map[string]interface{}{"componentType": 5126, "count": 3, "type": "VEC3"}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Check(ctx, cfg)

	// the primitive reaches the Draco decoder, which is not installed in the temp dir
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrDecoderNotFound)
	assert.NotErrorIs(t, err, loader.ErrUnsupportedCompression)
}
