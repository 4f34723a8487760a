package portal

import (
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"
)

// FirefliesCount is the number of particles in the scene.
const FirefliesCount = 30

// ParticleField is an immutable set of points with one scale each.
type ParticleField struct {
	Positions []float32 // x, y, z per point
	Scales    []float32
}

// GenerateFireflies scatters count points over a 4x4 footprint, 2 units tall.
// rnd must return values in [0,1).
func GenerateFireflies(count int, rnd func() float32) ParticleField {
	if count < 0 {
		count = 0
	}
	f := ParticleField{
		Positions: make([]float32, count*3),
		Scales:    make([]float32, count),
	}
	for i := 0; i < count; i++ {
		f.Positions[i*3+0] = (rnd() - 0.5) * 4
		f.Positions[i*3+1] = rnd() * 2
		f.Positions[i*3+2] = (rnd() - 0.5) * 4

		f.Scales[i] = rnd()
	}
	return f
}

func (f ParticleField) Len() int {
	return len(f.Scales)
}

// Mesh builds a point mesh with position and aScale attributes.
func (f ParticleField) Mesh() (*renderer.Mesh, error) {
	points := make([][3]float32, f.Len())
	for i := range points {
		points[i] = [3]float32{f.Positions[i*3], f.Positions[i*3+1], f.Positions[i*3+2]}
	}
	return renderer.NewPointsMesh("fireflies", points, f.Scales)
}

// Node wraps the field in a drawable scene node using mat.
func (f ParticleField) Node(mat *renderer.Material) (*scene.Node, error) {
	mesh, err := f.Mesh()
	if err != nil {
		return nil, err
	}
	n := scene.NewNode("fireflies")
	n.Mesh = mesh
	n.Material = mat
	return n, nil
}
