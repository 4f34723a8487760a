package controls

import (
	"math"

	"Portal3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Drag is the action bound to a held pointer button.
type Drag int

const (
	DragNone Drag = iota
	DragRotate
	DragPan
)

const epsilon = 1e-6

// spherical is an offset from the target: radius, polar angle from +Y, azimuth around Y.
type spherical struct {
	radius, phi, theta float32
}

func sphericalFromVec(v mgl32.Vec3) spherical {
	s := spherical{radius: v.Len()}
	if s.radius == 0 {
		return s
	}
	s.theta = float32(math.Atan2(float64(v.X()), float64(v.Z())))
	s.phi = float32(math.Acos(float64(mgl32.Clamp(v.Y()/s.radius, -1, 1))))
	return s
}

func (s spherical) vec() mgl32.Vec3 {
	sinPhi := float32(math.Sin(float64(s.phi)))
	return mgl32.Vec3{
		s.radius * sinPhi * float32(math.Sin(float64(s.theta))),
		s.radius * float32(math.Cos(float64(s.phi))),
		s.radius * sinPhi * float32(math.Cos(float64(s.theta))),
	}
}

// Orbit moves a camera around a target point. With damping enabled each
// Update applies a fraction of the pending motion, so movement eases out.
type Orbit struct {
	Target mgl32.Vec3

	EnableDamping bool
	DampingFactor float32

	RotateSpeed   float32
	PanSpeed      float32
	ZoomSpeed     float32
	MinDistance   float32
	MaxDistance   float32
	MinPolarAngle float32
	MaxPolarAngle float32

	camera         *renderer.Camera
	viewportHeight float32

	sphericalDelta spherical
	panOffset      mgl32.Vec3
	scale          float32

	drag  Drag
	lastX float64
	lastY float64
}

type Option func(*Orbit)

// WithDamping enables inertia with the given factor.
func WithDamping(factor float32) Option {
	return func(o *Orbit) {
		o.EnableDamping = true
		o.DampingFactor = factor
	}
}

// WithTarget sets the point the camera orbits around.
func WithTarget(target mgl32.Vec3) Option {
	return func(o *Orbit) {
		o.Target = target
	}
}

func NewOrbit(camera *renderer.Camera, opts ...Option) *Orbit {
	o := &Orbit{
		camera:         camera,
		DampingFactor:  0.05,
		RotateSpeed:    1,
		PanSpeed:       1,
		ZoomSpeed:      1,
		MinDistance:    0,
		MaxDistance:    float32(math.Inf(1)),
		MinPolarAngle:  0,
		MaxPolarAngle:  math.Pi,
		viewportHeight: 1,
		scale:          1,
	}
	for _, opt := range opts {
		opt(o)
	}
	camera.LookAt(o.Target)
	return o
}

// SetViewportHeight sets the logical height that pointer deltas are measured against.
func (o *Orbit) SetViewportHeight(height int) {
	if height > 0 {
		o.viewportHeight = float32(height)
	}
}

// Rotate queues an orbit by a pointer movement in logical pixels.
// A drag across the full viewport height turns a full circle.
func (o *Orbit) Rotate(dx, dy float64) {
	o.sphericalDelta.theta -= 2 * math.Pi * float32(dx) / o.viewportHeight * o.RotateSpeed
	o.sphericalDelta.phi -= 2 * math.Pi * float32(dy) / o.viewportHeight * o.RotateSpeed
}

// Pan queues a translation of camera and target in the view plane.
func (o *Orbit) Pan(dx, dy float64) {
	offset := o.camera.Position.Sub(o.Target)
	// half the visible height at the target distance
	targetDistance := offset.Len() * float32(math.Tan(float64(mgl32.DegToRad(o.camera.Fov))/2))

	right, up := o.axes()
	left := right.Mul(-2 * float32(dx) * targetDistance / o.viewportHeight * o.PanSpeed)
	upward := up.Mul(2 * float32(dy) * targetDistance / o.viewportHeight * o.PanSpeed)
	o.panOffset = o.panOffset.Add(left).Add(upward)
}

// Dolly moves toward the target for positive scroll and away for negative.
func (o *Orbit) Dolly(scroll float64) {
	if scroll == 0 {
		return
	}
	zoom := float32(math.Pow(0.95, float64(o.ZoomSpeed)))
	if scroll > 0 {
		o.scale *= zoom
	} else {
		o.scale /= zoom
	}
}

// PointerDown starts a drag at the given cursor position.
func (o *Orbit) PointerDown(drag Drag, x, y float64) {
	o.drag = drag
	o.lastX, o.lastY = x, y
}

// PointerMove feeds the active drag.
func (o *Orbit) PointerMove(x, y float64) {
	dx, dy := x-o.lastX, y-o.lastY
	o.lastX, o.lastY = x, y
	switch o.drag {
	case DragRotate:
		o.Rotate(dx, dy)
	case DragPan:
		o.Pan(dx, dy)
	}
}

func (o *Orbit) PointerUp() {
	o.drag = DragNone
}

func (o *Orbit) Dragging() Drag {
	return o.drag
}

// Update moves the camera by the pending motion and reports whether it moved.
// Call once per frame.
func (o *Orbit) Update() bool {
	position := o.camera.Position
	s := sphericalFromVec(position.Sub(o.Target))

	factor := float32(1)
	if o.EnableDamping {
		factor = o.DampingFactor
	}
	s.theta += o.sphericalDelta.theta * factor
	s.phi += o.sphericalDelta.phi * factor
	s.phi = mgl32.Clamp(s.phi, o.MinPolarAngle, o.MaxPolarAngle)
	s.phi = mgl32.Clamp(s.phi, epsilon, math.Pi-epsilon)

	s.radius *= o.scale
	s.radius = mgl32.Clamp(s.radius, o.MinDistance, o.MaxDistance)

	o.Target = o.Target.Add(o.panOffset.Mul(factor))

	newPosition := o.Target.Add(s.vec())
	o.camera.Position = newPosition
	o.camera.LookAt(o.Target)

	if o.EnableDamping {
		o.sphericalDelta.theta *= 1 - o.DampingFactor
		o.sphericalDelta.phi *= 1 - o.DampingFactor
		o.panOffset = o.panOffset.Mul(1 - o.DampingFactor)
	} else {
		o.sphericalDelta = spherical{}
		o.panOffset = mgl32.Vec3{}
	}
	o.scale = 1

	return newPosition.Sub(position).Len() > 1e-4
}

// axes are the camera's right and up vectors in world space.
func (o *Orbit) axes() (mgl32.Vec3, mgl32.Vec3) {
	front := o.camera.Front()
	right := front.Cross(o.camera.Up)
	if right.Len() < epsilon {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	return right, right.Cross(front).Normalize()
}
