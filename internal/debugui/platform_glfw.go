package debugui

import (
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/inkyblackness/imgui-go/v4"
)

const mouseButtonCount = 3

// GLFW feeds window input to ImGui. It does not install callbacks; the owner
// of the window forwards events so other consumers can share them.
type GLFW struct {
	imguiIO imgui.IO
	window  *glfw.Window

	time             float64
	mouseJustPressed [mouseButtonCount]bool
}

// NewGLFWFromExistingWindow binds ImGui input to a window created elsewhere.
func NewGLFWFromExistingWindow(window *glfw.Window, io imgui.IO) *GLFW {
	p := &GLFW{imguiIO: io, window: window}
	p.setKeyMapping()
	return p
}

// DisplaySize is the window size in screen coordinates.
func (p *GLFW) DisplaySize() [2]float32 {
	w, h := p.window.GetSize()
	return [2]float32{float32(w), float32(h)}
}

// FramebufferSize is the window size in pixels.
func (p *GLFW) FramebufferSize() [2]float32 {
	w, h := p.window.GetFramebufferSize()
	return [2]float32{float32(w), float32(h)}
}

// NewFrame updates display size, time step and mouse state ahead of imgui.NewFrame.
func (p *GLFW) NewFrame() {
	size := p.DisplaySize()
	p.imguiIO.SetDisplaySize(imgui.Vec2{X: size[0], Y: size[1]})

	now := glfw.GetTime()
	if p.time > 0 {
		p.imguiIO.SetDeltaTime(float32(now - p.time))
	} else {
		p.imguiIO.SetDeltaTime(1.0 / 60.0)
	}
	p.time = now

	if p.window.GetAttrib(glfw.Focused) != 0 {
		x, y := p.window.GetCursorPos()
		p.imguiIO.SetMousePosition(imgui.Vec2{X: float32(x), Y: float32(y)})
	} else {
		p.imguiIO.SetMousePosition(imgui.Vec2{X: -math.MaxFloat32, Y: -math.MaxFloat32})
	}

	for i := 0; i < mouseButtonCount; i++ {
		down := p.mouseJustPressed[i] || p.window.GetMouseButton(glfwButtonIDByIndex[i]) == glfw.Press
		p.imguiIO.SetMouseButtonDown(i, down)
		p.mouseJustPressed[i] = false
	}
}

// WantCaptureMouse reports whether the last frame's UI is using the mouse.
func (p *GLFW) WantCaptureMouse() bool {
	return p.imguiIO.WantCaptureMouse()
}

// WantCaptureKeyboard reports whether a widget has keyboard focus.
func (p *GLFW) WantCaptureKeyboard() bool {
	return p.imguiIO.WantCaptureKeyboard()
}

var glfwButtonIndexByID = map[glfw.MouseButton]int{
	glfw.MouseButton1: 0,
	glfw.MouseButton2: 1,
	glfw.MouseButton3: 2,
}

var glfwButtonIDByIndex = map[int]glfw.MouseButton{
	0: glfw.MouseButton1,
	1: glfw.MouseButton2,
	2: glfw.MouseButton3,
}

// MouseButton latches presses so clicks shorter than a frame are not lost.
func (p *GLFW) MouseButton(button glfw.MouseButton, action glfw.Action) {
	if i, ok := glfwButtonIndexByID[button]; ok && action == glfw.Press {
		p.mouseJustPressed[i] = true
	}
}

func (p *GLFW) Scroll(x, y float64) {
	p.imguiIO.AddMouseWheelDelta(float32(x), float32(y))
}

func (p *GLFW) Char(char rune) {
	p.imguiIO.AddInputCharacters(string(char))
}

func (p *GLFW) Key(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Press {
		p.imguiIO.KeyPress(int(key))
	}
	if action == glfw.Release {
		p.imguiIO.KeyRelease(int(key))
	}

	p.imguiIO.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
	p.imguiIO.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
	p.imguiIO.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
	p.imguiIO.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
}

func (p *GLFW) setKeyMapping() {
	p.imguiIO.KeyMap(imgui.KeyTab, int(glfw.KeyTab))
	p.imguiIO.KeyMap(imgui.KeyLeftArrow, int(glfw.KeyLeft))
	p.imguiIO.KeyMap(imgui.KeyRightArrow, int(glfw.KeyRight))
	p.imguiIO.KeyMap(imgui.KeyUpArrow, int(glfw.KeyUp))
	p.imguiIO.KeyMap(imgui.KeyDownArrow, int(glfw.KeyDown))
	p.imguiIO.KeyMap(imgui.KeyPageUp, int(glfw.KeyPageUp))
	p.imguiIO.KeyMap(imgui.KeyPageDown, int(glfw.KeyPageDown))
	p.imguiIO.KeyMap(imgui.KeyHome, int(glfw.KeyHome))
	p.imguiIO.KeyMap(imgui.KeyEnd, int(glfw.KeyEnd))
	p.imguiIO.KeyMap(imgui.KeyInsert, int(glfw.KeyInsert))
	p.imguiIO.KeyMap(imgui.KeyDelete, int(glfw.KeyDelete))
	p.imguiIO.KeyMap(imgui.KeyBackspace, int(glfw.KeyBackspace))
	p.imguiIO.KeyMap(imgui.KeySpace, int(glfw.KeySpace))
	p.imguiIO.KeyMap(imgui.KeyEnter, int(glfw.KeyEnter))
	p.imguiIO.KeyMap(imgui.KeyEscape, int(glfw.KeyEscape))
	p.imguiIO.KeyMap(imgui.KeyA, int(glfw.KeyA))
	p.imguiIO.KeyMap(imgui.KeyC, int(glfw.KeyC))
	p.imguiIO.KeyMap(imgui.KeyV, int(glfw.KeyV))
	p.imguiIO.KeyMap(imgui.KeyX, int(glfw.KeyX))
	p.imguiIO.KeyMap(imgui.KeyY, int(glfw.KeyY))
	p.imguiIO.KeyMap(imgui.KeyZ, int(glfw.KeyZ))
}
