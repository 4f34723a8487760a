package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// renderTarget is the offscreen surface the scene is drawn into.
// With samples > 0 it renders multisampled, resolves, then blits to the window.
type renderTarget struct {
	width, height int32
	samples       int32

	msaaFBO   uint32
	msaaColor uint32
	msaaDepth uint32

	resolveFBO   uint32
	resolveColor uint32
	resolveDepth uint32
}

func newRenderTarget(width, height, samples int32) (*renderTarget, error) {
	rt := &renderTarget{samples: samples}
	if err := rt.resize(width, height); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *renderTarget) resize(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render target: invalid size %dx%d", width, height)
	}
	if width == rt.width && height == rt.height && rt.resolveFBO != 0 {
		return nil
	}
	rt.release()

	var unwind Unwind
	defer unwind.Unwind()

	if rt.samples > 0 {
		gl.GenFramebuffers(1, &rt.msaaFBO)
		unwind.Add(func() { gl.DeleteFramebuffers(1, &rt.msaaFBO); rt.msaaFBO = 0 })
		gl.BindFramebuffer(gl.FRAMEBUFFER, rt.msaaFBO)

		gl.GenRenderbuffers(1, &rt.msaaColor)
		unwind.Add(func() { gl.DeleteRenderbuffers(1, &rt.msaaColor); rt.msaaColor = 0 })
		gl.BindRenderbuffer(gl.RENDERBUFFER, rt.msaaColor)
		gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, rt.samples, gl.RGBA8, width, height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, rt.msaaColor)

		gl.GenRenderbuffers(1, &rt.msaaDepth)
		unwind.Add(func() { gl.DeleteRenderbuffers(1, &rt.msaaDepth); rt.msaaDepth = 0 })
		gl.BindRenderbuffer(gl.RENDERBUFFER, rt.msaaDepth)
		gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, rt.samples, gl.DEPTH24_STENCIL8, width, height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, rt.msaaDepth)

		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return fmt.Errorf("multisample framebuffer incomplete: 0x%x", status)
		}
	}

	gl.GenFramebuffers(1, &rt.resolveFBO)
	unwind.Add(func() { gl.DeleteFramebuffers(1, &rt.resolveFBO); rt.resolveFBO = 0 })
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.resolveFBO)

	gl.GenRenderbuffers(1, &rt.resolveColor)
	unwind.Add(func() { gl.DeleteRenderbuffers(1, &rt.resolveColor); rt.resolveColor = 0 })
	gl.BindRenderbuffer(gl.RENDERBUFFER, rt.resolveColor)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, rt.resolveColor)

	if rt.samples == 0 {
		gl.GenRenderbuffers(1, &rt.resolveDepth)
		unwind.Add(func() { gl.DeleteRenderbuffers(1, &rt.resolveDepth); rt.resolveDepth = 0 })
		gl.BindRenderbuffer(gl.RENDERBUFFER, rt.resolveDepth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, width, height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, rt.resolveDepth)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return fmt.Errorf("resolve framebuffer incomplete: 0x%x", status)
	}

	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	rt.width, rt.height = width, height
	unwind.Discard()
	return nil
}

// bind makes the target the draw framebuffer.
func (rt *renderTarget) bind() {
	if rt.samples > 0 {
		gl.BindFramebuffer(gl.FRAMEBUFFER, rt.msaaFBO)
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, rt.resolveFBO)
	}
	gl.Viewport(0, 0, rt.width, rt.height)
}

// present resolves samples and scales the image onto the default framebuffer.
func (rt *renderTarget) present(windowWidth, windowHeight int32) {
	if rt.samples > 0 {
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, rt.msaaFBO)
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, rt.resolveFBO)
		gl.BlitFramebuffer(0, 0, rt.width, rt.height, 0, 0, rt.width, rt.height, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, rt.resolveFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, rt.width, rt.height, 0, 0, windowWidth, windowHeight, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, windowWidth, windowHeight)
}

func (rt *renderTarget) release() {
	for _, fbo := range []*uint32{&rt.msaaFBO, &rt.resolveFBO} {
		if *fbo != 0 {
			gl.DeleteFramebuffers(1, fbo)
			*fbo = 0
		}
	}
	for _, rb := range []*uint32{&rt.msaaColor, &rt.msaaDepth, &rt.resolveColor, &rt.resolveDepth} {
		if *rb != 0 {
			gl.DeleteRenderbuffers(1, rb)
			*rb = 0
		}
	}
	rt.width, rt.height = 0, 0
}
