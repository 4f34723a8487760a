package debugui

import (
	"Portal3D/internal/portal"

	"github.com/inkyblackness/imgui-go/v4"
)

const (
	PanelWidth  = 400
	panelMargin = 10
)

// Panel is the tweak window for background, particle size and portal colours.
type Panel struct {
	state *portal.DebugState
	open  bool
}

func NewPanel(state *portal.DebugState) *Panel {
	return &Panel{state: state, open: true}
}

// Open reports whether the window is shown.
func (p *Panel) Open() bool {
	return p.open
}

// Toggle shows or hides the window. The window has no close button, so this
// is the only way to hide it.
func (p *Panel) Toggle() {
	p.open = !p.open
}

// Draw emits the widgets. Must run between imgui.NewFrame and imgui.Render.
func (p *Panel) Draw(displaySize [2]float32) {
	if !p.open {
		return
	}

	pos := panelPosition(displaySize[0])
	imgui.SetNextWindowPosV(imgui.Vec2{X: pos[0], Y: pos[1]}, imgui.ConditionFirstUseEver, imgui.Vec2{})
	imgui.SetNextWindowSizeV(imgui.Vec2{X: PanelWidth, Y: 0}, imgui.ConditionFirstUseEver)

	// no close button; the title bar still collapses the widgets
	if imgui.Begin("Debug") {
		background := p.state.Background
		if imgui.ColorEdit3V("clearColor", &background, 0) {
			p.state.SetBackground(background)
		}

		size := p.state.ParticleSize
		if imgui.SliderFloatV("uSize", &size, portal.MinParticleSize, portal.MaxParticleSize, "%.0f", 0) {
			p.state.SetParticleSize(size)
		}

		start := p.state.ColorStart
		if imgui.ColorEdit3V("portalColorStart", &start, 0) {
			p.state.SetColorStart(start)
		}

		end := p.state.ColorEnd
		if imgui.ColorEdit3V("portalColorEnd", &end, 0) {
			p.state.SetColorEnd(end)
		}
	}
	imgui.End()
}

// panelPosition anchors the window to the top-right corner, or the left edge
// when the display is narrower than the panel.
func panelPosition(displayWidth float32) [2]float32 {
	x := displayWidth - PanelWidth - panelMargin
	if x < 0 {
		x = 0
	}
	return [2]float32{x, panelMargin}
}
