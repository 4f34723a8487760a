package scene

import (
	"Portal3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is one element of the scene graph. A node with both a mesh and a
// material is drawable; any node can carry children.
type Node struct {
	// HOT DATA - read every frame when collecting draw items
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Mesh     *renderer.Mesh
	Material *renderer.Material
	Visible  bool

	// COLD DATA
	Name     string
	Children []*Node
	parent   *Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Visible:  true,
	}
}

// Add appends child, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

// FindChild returns the first direct child with the given name.
func (n *Node) FindChild(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) SetPosition(x, y, z float32) {
	n.Position = mgl32.Vec3{x, y, z}
}

// SetRotationY replaces the rotation with angle radians about +Y.
func (n *Node) SetRotationY(angle float32) {
	n.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
}

func (n *Node) LocalMatrix() mgl32.Mat4 {
	translation := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	scale := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return translation.Mul4(n.Rotation.Mat4()).Mul4(scale)
}

// WorldMatrix composes local matrices up to the root.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Walk visits n and its descendants depth first with their world matrices.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, world mgl32.Mat4) bool) {
	n.walk(mgl32.Ident4(), fn)
}

func (n *Node) walk(parentWorld mgl32.Mat4, fn func(*Node, mgl32.Mat4) bool) {
	world := parentWorld.Mul4(n.LocalMatrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.Children {
		c.walk(world, fn)
	}
}

// Collect appends a draw item for every visible drawable node under n.
func (n *Node) Collect(items []renderer.DrawItem) []renderer.DrawItem {
	n.Walk(func(node *Node, world mgl32.Mat4) bool {
		if !node.Visible {
			return false
		}
		if node.Mesh != nil && node.Material != nil {
			items = append(items, renderer.DrawItem{Mesh: node.Mesh, Material: node.Material, World: world})
		}
		return true
	})
	return items
}

// Meshes returns every distinct mesh under n.
func (n *Node) Meshes() []*renderer.Mesh {
	var meshes []*renderer.Mesh
	seen := make(map[*renderer.Mesh]bool)
	n.Walk(func(node *Node, _ mgl32.Mat4) bool {
		if node.Mesh != nil && !seen[node.Mesh] {
			seen[node.Mesh] = true
			meshes = append(meshes, node.Mesh)
		}
		return true
	})
	return meshes
}
