package portal

import (
	"fmt"
	"math"

	"Portal3D/internal/config"
	"Portal3D/internal/logger"
	"Portal3D/internal/renderer"

	"go.uber.org/zap"
)

// Particle size slider range.
const (
	MinParticleSize = 0
	MaxParticleSize = 500
)

// ClearColorSetter receives the background colour.
type ClearColorSetter interface {
	SetClearColor(c [3]float32)
}

// DebugState holds the tweakable values and pushes each change to render state.
type DebugState struct {
	Background   [3]float32
	ColorStart   [3]float32
	ColorEnd     [3]float32
	ParticleSize float32

	bank  *Bank
	clear ClearColorSetter
}

// NewDebugState parses the configured colours and applies them once.
func NewDebugState(cfg config.Debug, bank *Bank, background ClearColorSetter) (*DebugState, error) {
	var s DebugState
	var err error
	if s.Background, err = config.ParseHex(cfg.Background); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if s.ColorStart, err = config.ParseHex(cfg.ColorStart); err != nil {
		return nil, fmt.Errorf("color_start: %w", err)
	}
	if s.ColorEnd, err = config.ParseHex(cfg.ColorEnd); err != nil {
		return nil, fmt.Errorf("color_end: %w", err)
	}
	s.bank = bank
	s.clear = background

	s.SetBackground(s.Background)
	s.SetColorStart(s.ColorStart)
	s.SetColorEnd(s.ColorEnd)
	s.SetParticleSize(cfg.ParticleSize)
	return &s, nil
}

// SetBackground changes the renderer clear colour. Values are sRGB.
func (s *DebugState) SetBackground(c [3]float32) {
	s.Background = c
	if s.clear != nil {
		s.clear.SetClearColor(c)
	}
	logger.Log.Debug("Background changed", zap.String("color", config.FormatHex(c)))
}

func (s *DebugState) SetColorStart(c [3]float32) {
	s.ColorStart = c
	s.bank.PortalLight.SetVec3("uColorStart", renderer.SRGBToLinear(c))
	logger.Log.Debug("Portal color start changed", zap.String("color", config.FormatHex(c)))
}

func (s *DebugState) SetColorEnd(c [3]float32) {
	s.ColorEnd = c
	s.bank.PortalLight.SetVec3("uColorEnd", renderer.SRGBToLinear(c))
	logger.Log.Debug("Portal color end changed", zap.String("color", config.FormatHex(c)))
}

// SetParticleSize clamps to the slider range and rounds to whole steps.
func (s *DebugState) SetParticleSize(size float32) {
	s.ParticleSize = clampSize(size)
	s.bank.Fireflies.SetFloat("uSize", s.ParticleSize)
}

func clampSize(size float32) float32 {
	if math.IsNaN(float64(size)) {
		return MinParticleSize
	}
	size = float32(math.Round(float64(size)))
	if size < MinParticleSize {
		return MinParticleSize
	}
	if size > MaxParticleSize {
		return MaxParticleSize
	}
	return size
}
