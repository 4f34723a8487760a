package loader

import (
	"errors"
	"fmt"
	"sort"

	"Portal3D/internal/logger"
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// ExtDraco is the glTF extension name for Draco compressed primitives.
const ExtDraco = "KHR_draco_mesh_compression"

// ErrUnsupportedCompression is returned for compressed primitives with no registered decoder.
var ErrUnsupportedCompression = errors.New("unsupported compressed geometry")

// compressionExtensions are primitive extensions whose attributes cannot be read directly.
var compressionExtensions = map[string]bool{
	ExtDraco: true,
}

// Geometry is decoded primitive data ready to become a mesh.
type Geometry struct {
	Positions [][3]float32
	UVs       [][2]float32
	Normals   [][3]float32
	Indices   []uint32
}

// GeometryDecoder expands a primitive carrying a compression extension.
type GeometryDecoder interface {
	Decode(doc *gltf.Document, prim *gltf.Primitive) (Geometry, error)
}

// GeometryDecoderFunc adapts a function to GeometryDecoder.
type GeometryDecoderFunc func(doc *gltf.Document, prim *gltf.Primitive) (Geometry, error)

func (f GeometryDecoderFunc) Decode(doc *gltf.Document, prim *gltf.Primitive) (Geometry, error) {
	return f(doc, prim)
}

// LoadScene reads a .gltf or .glb file and returns a node holding the default scene's root nodes.
// Drawable nodes get the loader's default material.
func (l *Loader) LoadScene(path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene %s: %w", path, err)
	}
	root, err := l.buildScene(doc)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", path, err)
	}
	logger.Log.Info("Scene loaded",
		zap.String("path", path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("meshes", len(doc.Meshes)))
	return root, nil
}

type sceneBuilder struct {
	loader *Loader
	doc    *gltf.Document
	meshes map[int]*renderer.Mesh
}

func (l *Loader) buildScene(doc *gltf.Document) (*scene.Node, error) {
	b := &sceneBuilder{loader: l, doc: doc, meshes: make(map[int]*renderer.Mesh)}

	root := scene.NewNode("Scene")
	if len(doc.Scenes) == 0 {
		// no scene list: every parentless node is a root
		for _, idx := range orphanNodes(doc) {
			child, err := b.node(idx, 0)
			if err != nil {
				return nil, err
			}
			root.Add(child)
		}
		return root, nil
	}

	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = int(*doc.Scene)
	}
	if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
		return nil, fmt.Errorf("default scene %d out of range (%d scenes)", sceneIdx, len(doc.Scenes))
	}
	s := doc.Scenes[sceneIdx]
	if s.Name != "" {
		root.Name = s.Name
	}
	for _, n := range s.Nodes {
		child, err := b.node(int(n), 0)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}
	return root, nil
}

// glTF forbids cycles; depth guards against malformed files.
const maxNodeDepth = 256

func (b *sceneBuilder) node(idx, depth int) (*scene.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxNodeDepth)
	}
	src := b.doc.Nodes[idx]

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	n := scene.NewNode(name)
	applyTransform(n, src)

	if src.Mesh != nil {
		mesh, err := b.mesh(int(*src.Mesh))
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		if mesh != nil {
			n.Mesh = mesh
			n.Material = b.loader.defaultMaterial
		}
	}

	for _, c := range src.Children {
		child, err := b.node(int(c), depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func applyTransform(n *scene.Node, src *gltf.Node) {
	if m := src.Matrix; m != [16]float64{} && m != identity64 {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		n.Position, n.Rotation, n.Scale = decompose(mat)
		return
	}
	t := src.TranslationOrDefault()
	r := src.RotationOrDefault()
	s := src.ScaleOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// decompose splits a column-major TRS matrix. Shear is discarded.
func decompose(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	translation := m.Col(3).Vec3()
	scale := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}
	var rot mgl32.Mat3
	for c := 0; c < 3; c++ {
		col := m.Col(c).Vec3()
		if scale[c] != 0 {
			col = col.Mul(1 / scale[c])
		}
		rot.SetCol(c, col)
	}
	return translation, mgl32.Mat4ToQuat(rot.Mat4()).Normalize(), scale
}

// mesh merges the triangle primitives of one glTF mesh. Results are shared between nodes.
func (b *sceneBuilder) mesh(idx int) (*renderer.Mesh, error) {
	if m, ok := b.meshes[idx]; ok {
		return m, nil
	}
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}
	src := b.doc.Meshes[idx]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", idx)
	}

	var merged *renderer.Mesh
	for i, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logger.Log.Warn("Skipping non-triangle primitive",
				zap.String("mesh", name),
				zap.Int("primitive", i),
				zap.Int("mode", int(prim.Mode)))
			continue
		}
		geom, err := b.geometry(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, i, err)
		}
		part, err := renderer.NewTriangleMesh(name, geom.Positions, geom.UVs, geom.Normals, geom.Indices)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = part
			continue
		}
		if err := merged.Merge(part); err != nil {
			return nil, err
		}
	}
	b.meshes[idx] = merged
	return merged, nil
}

func (b *sceneBuilder) geometry(prim *gltf.Primitive) (Geometry, error) {
	for _, ext := range sortedKeys(prim.Extensions) {
		if dec, ok := b.loader.decoders[ext]; ok {
			return dec.Decode(b.doc, prim)
		}
		if compressionExtensions[ext] {
			return Geometry{}, fmt.Errorf("%w: %s (no decoder registered, decoder path %q)",
				ErrUnsupportedCompression, ext, b.loader.assets.DecoderDir())
		}
	}
	return readGeometry(b.doc, prim)
}

func readGeometry(doc *gltf.Document, prim *gltf.Primitive) (Geometry, error) {
	var geom Geometry

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return geom, errors.New("primitive has no POSITION attribute")
	}
	acr, err := accessor(doc, int(posIdx))
	if err != nil {
		return geom, err
	}
	if geom.Positions, err = modeler.ReadPosition(doc, acr, nil); err != nil {
		return geom, fmt.Errorf("read positions: %w", err)
	}

	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = accessor(doc, int(idx)); err != nil {
			return geom, err
		}
		if geom.UVs, err = modeler.ReadTextureCoord(doc, acr, nil); err != nil {
			return geom, fmt.Errorf("read uvs: %w", err)
		}
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = accessor(doc, int(idx)); err != nil {
			return geom, err
		}
		if geom.Normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return geom, fmt.Errorf("read normals: %w", err)
		}
	} else {
		geom.Normals = make([][3]float32, len(geom.Positions))
		for i := range geom.Normals {
			geom.Normals[i] = [3]float32{0, 1, 0}
		}
	}

	if prim.Indices != nil {
		if acr, err = accessor(doc, int(*prim.Indices)); err != nil {
			return geom, err
		}
		if geom.Indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return geom, fmt.Errorf("read indices: %w", err)
		}
	}
	return geom, nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

func orphanNodes(doc *gltf.Document) []int {
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(hasParent) {
				hasParent[int(c)] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func sortedKeys(ext gltf.Extensions) []string {
	keys := make([]string, 0, len(ext))
	for k := range ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

