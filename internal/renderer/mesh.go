package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type PrimitiveMode int

const (
	Triangles PrimitiveMode = iota
	Points
)

// Attribute is one float attribute inside an interleaved vertex.
type Attribute struct {
	Location uint32
	Size     int32
	Offset   int
}

// triangle layout: position(3) uv(2) normal(3)
const triangleStride = 8

var triangleLayout = []Attribute{
	{Location: 0, Size: 3, Offset: 0},
	{Location: 1, Size: 2, Offset: 3},
	{Location: 2, Size: 3, Offset: 5},
}

// point layout: position(3) scale(1)
const pointStride = 4

var pointLayout = []Attribute{
	{Location: 0, Size: 3, Offset: 0},
	{Location: 1, Size: 1, Offset: 3},
}

// Mesh is CPU geometry plus the GL objects it is uploaded to.
type Mesh struct {
	// HOT DATA
	VAO   uint32
	VBO   uint32
	EBO   uint32
	Mode  PrimitiveMode
	Count int32 // vertices for Points, indices for Triangles

	// COLD DATA
	Name            string
	InterleavedData []float32
	Indices         []uint32
	stride          int
	layout          []Attribute
	uploaded        bool
}

// NewTriangleMesh interleaves indexed triangle data. Missing uvs or normals are zero filled.
func NewTriangleMesh(name string, positions [][3]float32, uvs [][2]float32, normals [][3]float32, indices []uint32) (*Mesh, error) {
	if len(uvs) != 0 && len(uvs) != len(positions) {
		return nil, fmt.Errorf("mesh %q: %d uvs for %d positions", name, len(uvs), len(positions))
	}
	if len(normals) != 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("mesh %q: %d normals for %d positions", name, len(normals), len(positions))
	}
	if indices == nil {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("mesh %q: index %d out of range (%d vertices)", name, idx, len(positions))
		}
	}

	data := make([]float32, 0, len(positions)*triangleStride)
	for i, p := range positions {
		data = append(data, p[0], p[1], p[2])
		if len(uvs) > 0 {
			data = append(data, uvs[i][0], uvs[i][1])
		} else {
			data = append(data, 0, 0)
		}
		if len(normals) > 0 {
			data = append(data, normals[i][0], normals[i][1], normals[i][2])
		} else {
			data = append(data, 0, 0, 0)
		}
	}

	return &Mesh{
		Name:            name,
		Mode:            Triangles,
		Count:           int32(len(indices)),
		InterleavedData: data,
		Indices:         indices,
		stride:          triangleStride,
		layout:          triangleLayout,
	}, nil
}

// NewPointsMesh builds an unindexed point cloud with one scale per point.
func NewPointsMesh(name string, positions [][3]float32, scales []float32) (*Mesh, error) {
	if len(scales) != len(positions) {
		return nil, fmt.Errorf("mesh %q: %d scales for %d positions", name, len(scales), len(positions))
	}
	data := make([]float32, 0, len(positions)*pointStride)
	for i, p := range positions {
		data = append(data, p[0], p[1], p[2], scales[i])
	}
	return &Mesh{
		Name:            name,
		Mode:            Points,
		Count:           int32(len(positions)),
		InterleavedData: data,
		stride:          pointStride,
		layout:          pointLayout,
	}, nil
}

// VertexCount is the number of vertices in the interleaved buffer.
func (m *Mesh) VertexCount() int {
	if m.stride == 0 {
		return 0
	}
	return len(m.InterleavedData) / m.stride
}

// Stride is the vertex size in floats.
func (m *Mesh) Stride() int {
	return m.stride
}

// Merge appends other's geometry to m. Both must be triangle meshes.
func (m *Mesh) Merge(other *Mesh) error {
	if m.Mode != Triangles || other.Mode != Triangles {
		return fmt.Errorf("merge %q into %q: only triangle meshes can be merged", other.Name, m.Name)
	}
	if m.uploaded {
		return fmt.Errorf("merge into %q: mesh already uploaded", m.Name)
	}
	base := uint32(m.VertexCount())
	m.InterleavedData = append(m.InterleavedData, other.InterleavedData...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, idx+base)
	}
	m.Count = int32(len(m.Indices))
	return nil
}

func (m *Mesh) upload() {
	if m.uploaded {
		return
	}
	gl.GenVertexArrays(1, &m.VAO)
	gl.BindVertexArray(m.VAO)

	gl.GenBuffers(1, &m.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.VBO)
	if len(m.InterleavedData) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(m.InterleavedData)*4, gl.Ptr(m.InterleavedData), gl.STATIC_DRAW)
	}

	if m.Mode == Triangles && len(m.Indices) > 0 {
		gl.GenBuffers(1, &m.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)
	}

	stride := int32(m.stride * 4)
	for _, a := range m.layout {
		gl.VertexAttribPointer(a.Location, a.Size, gl.FLOAT, false, stride, gl.PtrOffset(a.Offset*4))
		gl.EnableVertexAttribArray(a.Location)
	}
	gl.BindVertexArray(0)
	m.uploaded = true
}

func (m *Mesh) draw() {
	if m.Count == 0 {
		return
	}
	gl.BindVertexArray(m.VAO)
	switch m.Mode {
	case Points:
		gl.DrawArrays(gl.POINTS, 0, m.Count)
	default:
		gl.DrawElements(gl.TRIANGLES, m.Count, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
}

// Release frees the GL objects; the CPU data is kept.
func (m *Mesh) Release() {
	if !m.uploaded {
		return
	}
	gl.DeleteVertexArrays(1, &m.VAO)
	gl.DeleteBuffers(1, &m.VBO)
	if m.EBO != 0 {
		gl.DeleteBuffers(1, &m.EBO)
	}
	m.VAO, m.VBO, m.EBO = 0, 0, 0
	m.uploaded = false
}
