package scene

import (
	"math"
	"testing"

	"Portal3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReparents(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	child := NewNode("child")

	a.Add(child)
	b.Add(child)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, child.Parent())

	b.Add(b)
	assert.Len(t, b.Children, 1, "a node cannot be its own child")
}

func TestFindChildOnlyDirect(t *testing.T) {
	root := NewNode("root")
	group := NewNode("group")
	deep := NewNode("portalLight")
	root.Add(group)
	group.Add(deep)

	assert.Nil(t, root.FindChild("portalLight"))
	assert.Same(t, group, root.FindChild("group"))
	assert.Same(t, deep, group.FindChild("portalLight"))
	assert.Nil(t, root.FindChild("missing"))
}

func TestWorldMatrixComposes(t *testing.T) {
	root := NewNode("root")
	root.SetRotationY(math.Pi / 2)
	child := NewNode("child")
	child.SetPosition(1, 0, 0)
	root.Add(child)

	p := child.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})

	// +X rotated a quarter turn about +Y lands on -Z
	assert.InDelta(t, 0, p.X(), 1e-5)
	assert.InDelta(t, -1, p.Z(), 1e-5)
}

func TestCollectSkipsInvisibleAndNonDrawable(t *testing.T) {
	mesh, err := renderer.NewPointsMesh("p", [][3]float32{{0, 0, 0}}, []float32{1})
	require.NoError(t, err)
	mat := renderer.NewMaterial("m", renderer.NewBasicShader())

	root := NewNode("root")
	drawable := NewNode("drawable")
	drawable.Mesh, drawable.Material = mesh, mat
	hidden := NewNode("hidden")
	hidden.Visible = false
	hiddenChild := NewNode("hiddenChild")
	hiddenChild.Mesh, hiddenChild.Material = mesh, mat
	hidden.Add(hiddenChild)
	noMaterial := NewNode("noMaterial")
	noMaterial.Mesh = mesh

	root.Add(drawable)
	root.Add(hidden)
	root.Add(noMaterial)

	items := root.Collect(nil)
	require.Len(t, items, 1)
	assert.Same(t, mat, items[0].Material)
	assert.Len(t, root.Meshes(), 1)
}
