// camera.go
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Camera struct {
	// HOT DATA - read every frame for view/projection matrices
	Position   mgl32.Vec3 // Camera position in world space
	Target     mgl32.Vec3 // Point the camera looks at
	Up         mgl32.Vec3 // Up direction vector
	Projection mgl32.Mat4 // Projection matrix

	// COLD DATA - only changes on resize or configuration
	Fov         float32 // Vertical field of view in degrees
	Near        float32 // Near clipping plane
	Far         float32 // Far clipping plane
	AspectRatio float32 // Width / height
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	camera := Camera{
		Position:    mgl32.Vec3{0, 0, 0},
		Target:      mgl32.Vec3{0, 0, -1},
		Up:          mgl32.Vec3{0, 1, 0},
		Fov:         fov,
		Near:        near,
		Far:         far,
		AspectRatio: aspect,
	}
	camera.UpdateProjection()
	return &camera
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

// SetAspectRatio rebuilds the projection.
func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) SetPosition(x, y, z float32) {
	c.Position = mgl32.Vec3{x, y, z}
}

func (c *Camera) LookAt(target mgl32.Vec3) {
	c.Target = target
}

// Front is the normalized view direction.
func (c *Camera) Front() mgl32.Vec3 {
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}
