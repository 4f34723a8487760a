//go:build windows

package engine

import (
	"syscall"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	DWMWA_USE_IMMERSIVE_DARK_MODE = 20
	DWMWA_BORDER_COLOR            = 34
	DWMWA_CAPTION_COLOR           = 35
)

// tintFrame switches the title bar to dark mode and paints caption and border with c.
func tintFrame(window *glfw.Window, c [3]float32) {
	hwnd := window.GetWin32Window()
	if hwnd == nil {
		return
	}

	var useDarkMode int32 = 1
	procDwmSetWindowAttribute.Call(
		uintptr(unsafe.Pointer(hwnd)),
		DWMWA_USE_IMMERSIVE_DARK_MODE,
		uintptr(unsafe.Pointer(&useDarkMode)),
		unsafe.Sizeof(useDarkMode),
	)

	ref := colorRef(c)
	for _, attr := range []uintptr{DWMWA_BORDER_COLOR, DWMWA_CAPTION_COLOR} {
		procDwmSetWindowAttribute.Call(
			uintptr(unsafe.Pointer(hwnd)),
			attr,
			uintptr(unsafe.Pointer(&ref)),
			unsafe.Sizeof(ref),
		)
	}
}
