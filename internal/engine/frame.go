package engine

import (
	"context"

	"Portal3D/internal/renderer"
)

// Updater is anything advanced once per frame, such as orbit controls.
type Updater interface {
	Update() bool
}

// Surface is the window a FrameDriver presents to.
type Surface interface {
	ShouldClose() bool
	SwapBuffers()
	PollEvents()
}

// FrameDriver runs the per-frame sequence: time, animated uniforms, controls, draw.
type FrameDriver struct {
	Clock    *Clock
	Animated []*renderer.Material
	Controls Updater

	// Before runs ahead of each tick; an error stops the loop.
	Before func() error
	Draw   func() error

	frames uint64
}

// Tick advances one frame.
func (d *FrameDriver) Tick() error {
	elapsed := float32(d.Clock.Elapsed())
	for _, m := range d.Animated {
		m.SetFloat("uTime", elapsed)
	}
	if d.Controls != nil {
		d.Controls.Update()
	}
	d.frames++
	if d.Draw == nil {
		return nil
	}
	return d.Draw()
}

// Frames is the number of ticks so far.
func (d *FrameDriver) Frames() uint64 {
	return d.frames
}

// Run ticks until the surface asks to close or ctx is done.
func (d *FrameDriver) Run(ctx context.Context, surface Surface) error {
	for !surface.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if d.Before != nil {
			if err := d.Before(); err != nil {
				return err
			}
		}
		if err := d.Tick(); err != nil {
			return err
		}
		surface.SwapBuffers()
		surface.PollEvents()
	}
	return nil
}
