package engine

import (
	"Portal3D/internal/logger"
	"Portal3D/internal/renderer"

	"go.uber.org/zap"
)

// Sizer is a render surface that follows the window size.
type Sizer interface {
	SetSize(width, height int, pixelRatio float64)
}

type viewportHeightSetter interface {
	SetViewportHeight(height int)
}

type pixelRatioSetter interface {
	SetPixelRatio(ratio float32)
}

// Viewport keeps camera, render surface, controls and point sizes in step with the window.
type Viewport struct {
	Width      int
	Height     int
	PixelRatio float64

	maxPixelRatio float64
	camera        *renderer.Camera
	surface       Sizer
	controls      viewportHeightSetter
	points        pixelRatioSetter
}

// NewViewport binds the consumers of size changes. controls and points may be nil.
func NewViewport(camera *renderer.Camera, surface Sizer, controls viewportHeightSetter, points pixelRatioSetter, maxPixelRatio float64) *Viewport {
	if maxPixelRatio < 1 {
		maxPixelRatio = 1
	}
	return &Viewport{
		PixelRatio:    1,
		maxPixelRatio: maxPixelRatio,
		camera:        camera,
		surface:       surface,
		controls:      controls,
		points:        points,
	}
}

// Resize applies a new logical window size and device pixel ratio.
// Zero sizes, as reported for minimised windows, are ignored.
func (v *Viewport) Resize(width, height int, deviceRatio float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	v.Width, v.Height = width, height
	v.PixelRatio = ClampPixelRatio(deviceRatio, v.maxPixelRatio)

	v.camera.SetAspectRatio(float32(width) / float32(height))
	if v.surface != nil {
		v.surface.SetSize(width, height, v.PixelRatio)
	}
	if v.controls != nil {
		v.controls.SetViewportHeight(height)
	}
	if v.points != nil {
		v.points.SetPixelRatio(float32(v.PixelRatio))
	}
	logger.Log.Debug("Viewport resized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("pixelRatio", v.PixelRatio))
	return true
}

// ClampPixelRatio limits the device ratio to max. Unknown ratios count as 1.
func ClampPixelRatio(device, max float64) float64 {
	if !(device > 0) {
		device = 1
	}
	if device > max {
		return max
	}
	return device
}
