package renderer

import (
	"fmt"
	"math"

	"Portal3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type OpenGLRenderer struct {
	target               *renderTarget
	samples              int32
	clearColor           [3]float32
	width, height        int
	fbWidth, fbHeight    int32
	currentShaderProgram uint32
	opaque, transparent  []DrawItem
	initialized          bool
}

// NewOpenGLRenderer creates a renderer that multisamples with the given sample count (0 disables MSAA).
func NewOpenGLRenderer(samples int) *OpenGLRenderer {
	if samples < 0 {
		samples = 0
	}
	return &OpenGLRenderer{samples: int32(samples)}
}

// Init loads GL function pointers and creates the offscreen surface.
// The context must be current on the calling thread.
func (rend *OpenGLRenderer) Init(width, height int, pixelRatio float64, framebufferWidth, framebufferHeight int) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("OpenGL initialization failed: %w", err)
	}
	logger.Log.Info("OpenGL render initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	rend.width, rend.height = width, height
	rend.fbWidth, rend.fbHeight = int32(framebufferWidth), int32(framebufferHeight)

	w, h := SurfaceSize(width, height, pixelRatio)
	target, err := newRenderTarget(w, h, rend.samples)
	if err != nil {
		return err
	}
	rend.target = target
	rend.initialized = true
	return nil
}

// SetSize changes the logical size and drawing-buffer pixel ratio.
func (rend *OpenGLRenderer) SetSize(width, height int, pixelRatio float64) {
	rend.width, rend.height = width, height
	if !rend.initialized {
		return
	}
	w, h := SurfaceSize(width, height, pixelRatio)
	if err := rend.target.resize(w, h); err != nil {
		logger.Log.Error("Failed to resize render target", zap.Error(err))
	}
}

func (rend *OpenGLRenderer) SetFramebufferSize(width, height int) {
	rend.fbWidth, rend.fbHeight = int32(width), int32(height)
}

func (rend *OpenGLRenderer) SetClearColor(c [3]float32) {
	rend.clearColor = c
}

// Render draws opaque items first, then transparent ones with their blend state, and presents.
func (rend *OpenGLRenderer) Render(items []DrawItem, camera *Camera) error {
	if !rend.initialized {
		return fmt.Errorf("renderer not initialized")
	}
	rend.target.bind()
	gl.ClearColor(rend.clearColor[0], rend.clearColor[1], rend.clearColor[2], 1.0)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)

	view := camera.GetViewMatrix()
	projection := camera.GetProjectionMatrix()

	rend.opaque, rend.transparent = PartitionItems(items, rend.opaque[:0], rend.transparent[:0])
	rend.currentShaderProgram = 0

	for _, item := range rend.opaque {
		if err := rend.draw(item, view, projection); err != nil {
			return err
		}
	}

	if len(rend.transparent) > 0 {
		gl.Enable(gl.BLEND)
		for _, item := range rend.transparent {
			switch item.Material.Blending {
			case AdditiveBlending:
				gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
			default:
				gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
			}
			gl.DepthMask(item.Material.DepthWrite)
			if err := rend.draw(item, view, projection); err != nil {
				return err
			}
		}
		gl.DepthMask(true)
		gl.Disable(gl.BLEND)
	}
	gl.Disable(gl.DEPTH_TEST)

	rend.target.present(rend.fbWidth, rend.fbHeight)
	return nil
}

func (rend *OpenGLRenderer) draw(item DrawItem, view, projection mgl32.Mat4) error {
	shader := item.Material.Shader
	if !shader.IsCompiled() {
		if err := shader.Compile(); err != nil {
			return err
		}
		logger.Log.Debug("Shader compiled", zap.String("shader", shader.Name))
	}
	if rend.currentShaderProgram != shader.Program() {
		shader.Use()
		rend.currentShaderProgram = shader.Program()
	}
	shader.SetMat4("projectionMatrix", projection)
	shader.SetMat4("viewMatrix", view)
	shader.SetMat4("modelMatrix", item.World)
	if err := item.Material.apply(); err != nil {
		return err
	}
	item.Mesh.upload()
	item.Mesh.draw()
	return nil
}

func (rend *OpenGLRenderer) Cleanup() {
	if rend.target != nil {
		rend.target.release()
	}
	rend.initialized = false
}

// SurfaceSize is the drawing-buffer size for a logical size at a pixel ratio.
func SurfaceSize(width, height int, pixelRatio float64) (int32, int32) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	w := int32(math.Floor(float64(width) * pixelRatio))
	h := int32(math.Floor(float64(height) * pixelRatio))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// PartitionItems splits items into opaque and transparent passes, keeping submission order.
// Items without a mesh or material are dropped.
func PartitionItems(items []DrawItem, opaque, transparent []DrawItem) ([]DrawItem, []DrawItem) {
	for _, item := range items {
		if item.Mesh == nil || item.Material == nil || item.Material.Shader == nil {
			continue
		}
		if item.Material.Transparent {
			transparent = append(transparent, item)
		} else {
			opaque = append(opaque, item)
		}
	}
	return opaque, transparent
}
