package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DrawItem is one mesh drawn with one material at a world transform.
type DrawItem struct {
	Mesh     *Mesh
	Material *Material
	World    mgl32.Mat4
}
