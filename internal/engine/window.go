package engine

import (
	"Portal3D/internal/renderer"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// background applies the debug background to the renderer clear colour and,
// where the platform allows it, to the window frame.
type background struct {
	renderer *renderer.OpenGLRenderer
	window   *glfw.Window
}

func (b background) SetClearColor(c [3]float32) {
	b.renderer.SetClearColor(c)
	if b.window != nil {
		tintFrame(b.window, c)
	}
}

// colorRef packs an sRGB triple as a Win32 COLORREF (0x00BBGGRR).
func colorRef(c [3]float32) uint32 {
	return uint32(channel(c[0])) | uint32(channel(c[1]))<<8 | uint32(channel(c[2]))<<16
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
