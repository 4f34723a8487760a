package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"Portal3D/internal/config"
	"Portal3D/internal/controls"
	"Portal3D/internal/debugui"
	"Portal3D/internal/loader"
	"Portal3D/internal/logger"
	"Portal3D/internal/portal"
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/inkyblackness/imgui-go/v4"
	"go.uber.org/zap"
)

// BakedTextureName is the texture manager key of the baked lighting.
const BakedTextureName = "baked"

// App owns the window, the scene and everything the frame loop touches.
type App struct {
	cfg config.Config

	window   *glfw.Window
	renderer *renderer.OpenGLRenderer
	textures *renderer.TextureManager
	camera   *renderer.Camera
	orbit    *controls.Orbit
	viewport *Viewport
	driver   *FrameDriver

	bank  *portal.Bank
	debug *portal.DebugState
	root  *scene.Node
	items []renderer.DrawItem

	pending *loader.Pending
	baked   *renderer.Texture

	imguiContext *imgui.Context
	platform     *debugui.GLFW
	uiRenderer   *debugui.OpenGL3
	panel        *debugui.Panel
}

func NewApp(cfg config.Config) *App {
	return &App{cfg: cfg}
}

// Run opens the window and drives frames until it closes, ctx is done or a load fails.
func (app *App) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("could not initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(app.cfg.Window.Width, app.cfg.Window.Height, app.cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("could not create glfw window: %w", err)
	}
	defer window.Destroy()
	app.window = window

	window.MakeContextCurrent()
	if app.cfg.Render.VSync {
		glfw.SwapInterval(1)
	}

	if err := app.setup(ctx); err != nil {
		app.cleanup()
		return err
	}
	defer app.cleanup()

	logger.Log.Info("Portal running",
		zap.Int("width", app.viewport.Width),
		zap.Int("height", app.viewport.Height),
		zap.Float64("pixelRatio", app.viewport.PixelRatio))
	return app.driver.Run(ctx, app)
}

func (app *App) setup(ctx context.Context) error {
	width, height := app.window.GetSize()
	fbWidth, fbHeight := app.window.GetFramebufferSize()
	ratio := ClampPixelRatio(app.deviceRatio(), app.cfg.Render.MaxPixelRatio)

	app.renderer = renderer.NewOpenGLRenderer(app.cfg.Render.Samples)
	if err := app.renderer.Init(width, height, ratio, fbWidth, fbHeight); err != nil {
		return err
	}
	app.textures = renderer.NewTextureManager()

	cam := app.cfg.Camera
	app.camera = renderer.NewPerspectiveCamera(cam.Fov, float32(width)/float32(height), cam.Near, cam.Far)
	app.camera.SetPosition(cam.Position[0], cam.Position[1], cam.Position[2])

	app.orbit = controls.NewOrbit(app.camera, orbitOptions(app.cfg.Controls)...)

	bank, err := portal.NewBank(app.cfg.Debug, float32(ratio))
	if err != nil {
		return fmt.Errorf("materials: %w", err)
	}
	app.bank = bank

	app.root, err = NewRoot(bank, rand.Float32)
	if err != nil {
		return err
	}

	app.debug, err = portal.NewDebugState(app.cfg.Debug, bank, background{renderer: app.renderer, window: app.window})
	if err != nil {
		return fmt.Errorf("debug panel: %w", err)
	}

	app.viewport = NewViewport(app.camera, app.renderer, app.orbit, bank, app.cfg.Render.MaxPixelRatio)
	app.viewport.Resize(width, height, app.deviceRatio())

	if err := app.setupUI(); err != nil {
		return err
	}

	router := &inputRouter{ui: app.platform, orbit: app.orbit, panel: app.panel}
	router.install(app.window)
	app.window.SetSizeCallback(func(w *glfw.Window, width, height int) {
		app.viewport.Resize(width, height, app.deviceRatio())
	})
	app.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.renderer.SetFramebufferSize(width, height)
	})
	app.window.SetContentScaleCallback(func(w *glfw.Window, x, y float32) {
		width, height := w.GetSize()
		app.viewport.Resize(width, height, float64(x))
	})

	app.pending = loader.New(app.cfg.Assets, loader.WithDraco()).LoadAsync(ctx)

	app.driver = &FrameDriver{
		Clock:    NewClock(time.Now),
		Animated: bank.AnimatedMaterials(),
		Controls: app.orbit,
		Before:   app.pollLoad,
		Draw:     app.draw,
	}
	return nil
}

func orbitOptions(cfg config.Controls) []controls.Option {
	opts := []controls.Option{controls.WithTarget(mgl32.Vec3(cfg.Target))}
	if cfg.Damping {
		opts = append(opts, controls.WithDamping(cfg.DampingFactor))
	}
	return opts
}

func (app *App) setupUI() error {
	app.imguiContext = imgui.CreateContext(nil)
	io := imgui.CurrentIO()
	io.SetIniFilename("")

	app.platform = debugui.NewGLFWFromExistingWindow(app.window, io)
	uiRenderer, err := debugui.NewOpenGL3(io)
	if err != nil {
		return err
	}
	app.uiRenderer = uiRenderer
	app.panel = debugui.NewPanel(app.debug)
	return nil
}

// deviceRatio is the window content scale, the desktop counterpart of a device pixel ratio.
func (app *App) deviceRatio() float64 {
	x, _ := app.window.GetContentScale()
	return float64(x)
}

// pollLoad installs the scene once the asynchronous load resolves.
func (app *App) pollLoad() error {
	if app.pending == nil {
		return nil
	}
	asset, ready, err := app.pending.Poll()
	if !ready {
		return nil
	}
	app.pending = nil
	if err != nil {
		return err
	}
	return app.install(asset)
}

func (app *App) install(asset *loader.Asset) error {
	tex, err := app.textures.Upload(BakedTextureName, asset.BakedTexture, renderer.TextureOptions{SRGB: true})
	if err != nil {
		return fmt.Errorf("upload baked texture: %w", err)
	}
	app.baked = tex
	if err := Install(app.root, app.bank, asset.Scene, tex); err != nil {
		return err
	}
	logger.Log.Info("Scene ready",
		zap.Int("meshes", len(app.root.Meshes())),
		zap.Int("textureWidth", tex.Width),
		zap.Int("textureHeight", tex.Height))
	return nil
}

// NewRoot builds the scene root holding the fireflies. The loaded scene joins it through Install.
func NewRoot(bank *portal.Bank, rnd func() float32) (*scene.Node, error) {
	root := scene.NewNode("root")
	fireflies, err := portal.GenerateFireflies(portal.FirefliesCount, rnd).Node(bank.Fireflies)
	if err != nil {
		return nil, fmt.Errorf("fireflies: %w", err)
	}
	root.Add(fireflies)
	return root, nil
}

// Install attaches the baked texture and assembles the loaded hierarchy under root.
func Install(root *scene.Node, bank *portal.Bank, loaded *scene.Node, baked *renderer.Texture) error {
	if loaded == nil {
		return errors.New("install scene: nothing loaded")
	}
	bank.AttachBakedTexture(baked)
	if err := portal.Assemble(root, loaded, bank); err != nil {
		return fmt.Errorf("install scene: %w", err)
	}
	return nil
}

func (app *App) draw() error {
	app.items = app.root.Collect(app.items[:0])
	if err := app.renderer.Render(app.items, app.camera); err != nil {
		return err
	}

	app.platform.NewFrame()
	imgui.NewFrame()
	app.panel.Draw(app.platform.DisplaySize())
	imgui.Render()
	app.uiRenderer.Render(app.platform.DisplaySize(), app.platform.FramebufferSize(), imgui.RenderedDrawData())
	return nil
}

// ShouldClose, SwapBuffers and PollEvents make App the driver's Surface.
func (app *App) ShouldClose() bool {
	return app.window.ShouldClose()
}

func (app *App) SwapBuffers() {
	app.window.SwapBuffers()
}

func (app *App) PollEvents() {
	glfw.PollEvents()
}

// cleanup releases GL objects in reverse order of creation.
func (app *App) cleanup() {
	if app.pending != nil {
		// drain the pool so no loader goroutine outlives the app
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := app.pending.Wait(ctx)
		cancel()
		if err != nil {
			logger.Log.Debug("Pending load discarded", zap.Error(err))
		}
		app.pending = nil
	}
	if app.uiRenderer != nil {
		app.uiRenderer.Dispose()
	}
	if app.imguiContext != nil {
		app.imguiContext.Destroy()
	}
	if app.root != nil {
		for _, mesh := range app.root.Meshes() {
			mesh.Release()
		}
	}
	for _, shader := range shaders(app.root, app.bank) {
		shader.Delete()
	}
	if app.textures != nil {
		app.textures.Release(app.baked)
		app.baked = nil
		stats := app.textures.GetStats()
		logger.Log.Debug("Textures released",
			zap.Int("uploaded", stats.TotalTextures),
			zap.Int("cacheHits", stats.CacheHits),
			zap.Int("leaked", stats.ActiveTextures))
		app.textures.Clear()
	}
	if app.renderer != nil {
		app.renderer.Cleanup()
	}
}

// shaders lists every distinct program used under root or held by bank.
func shaders(root *scene.Node, bank *portal.Bank) []*renderer.Shader {
	var out []*renderer.Shader
	seen := make(map[*renderer.Shader]bool)
	add := func(s *renderer.Shader) {
		if s != nil && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if bank != nil {
		for _, s := range bank.Shaders() {
			add(s)
		}
	}
	if root != nil {
		root.Walk(func(node *scene.Node, _ mgl32.Mat4) bool {
			if node.Material != nil {
				add(node.Material.Shader)
			}
			return true
		})
	}
	return out
}

// Check loads the assets and verifies the scene binds, without a window or GL context.
func Check(ctx context.Context, cfg config.Config) error {
	asset, err := loader.New(cfg.Assets, loader.WithDraco()).LoadAsync(ctx).Wait(ctx)
	if err != nil {
		return err
	}
	bank, err := portal.NewBank(cfg.Debug, 1)
	if err != nil {
		return err
	}
	root, err := NewRoot(bank, rand.Float32)
	if err != nil {
		return err
	}
	if err := Install(root, bank, asset.Scene, &renderer.Texture{Name: BakedTextureName}); err != nil {
		return err
	}
	b := asset.BakedTexture.Bounds()
	logger.Log.Info("Assets ok",
		zap.Int("meshes", len(asset.Scene.Meshes())),
		zap.Int("textureWidth", b.Dx()),
		zap.Int("textureHeight", b.Dy()))
	return nil
}
