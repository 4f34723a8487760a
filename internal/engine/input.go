package engine

import (
	"Portal3D/internal/controls"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// uiInput is the overlay that sees input first and may claim the mouse.
type uiInput interface {
	MouseButton(button glfw.MouseButton, action glfw.Action)
	Scroll(x, y float64)
	Key(key glfw.Key, action glfw.Action, mods glfw.ModifierKey)
	Char(char rune)
	WantCaptureMouse() bool
	WantCaptureKeyboard() bool
}

type toggler interface {
	Toggle()
}

// PanelKey shows or hides the debug panel when no widget has keyboard focus.
const PanelKey = glfw.KeyH

// orbitInput is the part of controls.Orbit driven by pointer events.
type orbitInput interface {
	PointerDown(drag controls.Drag, x, y float64)
	PointerMove(x, y float64)
	PointerUp()
	Dragging() controls.Drag
	Dolly(scroll float64)
}

// inputRouter hands window events to the UI, then to the orbit controls
// unless the UI wants the mouse. Keys reach the panel shortcut only when the
// UI does not want the keyboard.
type inputRouter struct {
	ui    uiInput
	orbit orbitInput
	panel toggler
}

var dragByButton = map[glfw.MouseButton]controls.Drag{
	glfw.MouseButtonLeft:  controls.DragRotate,
	glfw.MouseButtonRight: controls.DragPan,
}

func (r *inputRouter) mouseButton(button glfw.MouseButton, action glfw.Action, x, y float64) {
	if r.ui != nil {
		r.ui.MouseButton(button, action)
	}
	drag, ok := dragByButton[button]
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		if r.uiWantsMouse() || r.orbit.Dragging() != controls.DragNone {
			return
		}
		r.orbit.PointerDown(drag, x, y)
	case glfw.Release:
		// a drag that ends over the panel still ends
		if r.orbit.Dragging() == drag {
			r.orbit.PointerUp()
		}
	}
}

func (r *inputRouter) cursorMove(x, y float64) {
	r.orbit.PointerMove(x, y)
}

func (r *inputRouter) scroll(x, y float64) {
	if r.ui != nil {
		r.ui.Scroll(x, y)
	}
	if r.uiWantsMouse() {
		return
	}
	r.orbit.Dolly(y)
}

func (r *inputRouter) key(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if r.ui != nil {
		r.ui.Key(key, action, mods)
		if r.ui.WantCaptureKeyboard() {
			return
		}
	}
	if key == PanelKey && action == glfw.Press && mods == 0 && r.panel != nil {
		r.panel.Toggle()
	}
}

func (r *inputRouter) char(char rune) {
	if r.ui != nil {
		r.ui.Char(char)
	}
}

func (r *inputRouter) uiWantsMouse() bool {
	return r.ui != nil && r.ui.WantCaptureMouse()
}

// install registers the router on the window.
func (r *inputRouter) install(window *glfw.Window) {
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		x, y := w.GetCursorPos()
		r.mouseButton(button, action, x, y)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		r.cursorMove(x, y)
	})
	window.SetScrollCallback(func(w *glfw.Window, x, y float64) {
		r.scroll(x, y)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		r.key(key, action, mods)
	})
	window.SetCharCallback(func(w *glfw.Window, char rune) {
		r.char(char)
	})
}
