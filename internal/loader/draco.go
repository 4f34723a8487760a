package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"Portal3D/internal/logger"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// DracoDecoderName is the Draco reference decoder expected in the decoder directory.
const DracoDecoderName = "draco_decoder"

var ErrDecoderNotFound = errors.New("draco decoder not found")

// dracoExtension is the KHR_draco_mesh_compression payload of a primitive.
type dracoExtension struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}

// DracoDecoder expands Draco compressed primitives by running the draco_decoder
// tool on the compressed buffer view and reading back its OBJ output.
type DracoDecoder struct {
	Binary string
}

// NewDracoDecoder looks for the decoder binary in dir.
func NewDracoDecoder(dir string) *DracoDecoder {
	name := DracoDecoderName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return &DracoDecoder{Binary: filepath.Join(dir, name)}
}

// WithDraco registers a DracoDecoder reading from the configured decoder directory.
func WithDraco() Option {
	return func(l *Loader) {
		l.decoders[ExtDraco] = NewDracoDecoder(l.assets.DecoderDir())
	}
}

func (d *DracoDecoder) Decode(doc *gltf.Document, prim *gltf.Primitive) (Geometry, error) {
	ext, err := parseDracoExtension(prim.Extensions[ExtDraco])
	if err != nil {
		return Geometry{}, err
	}
	if ext.BufferView < 0 || ext.BufferView >= len(doc.BufferViews) {
		return Geometry{}, fmt.Errorf("draco: buffer view %d out of range", ext.BufferView)
	}
	data, err := modeler.ReadBufferView(doc, doc.BufferViews[ext.BufferView])
	if err != nil {
		return Geometry{}, fmt.Errorf("draco: read buffer view %d: %w", ext.BufferView, err)
	}
	if _, err := os.Stat(d.Binary); err != nil {
		return Geometry{}, fmt.Errorf("%w: %s", ErrDecoderNotFound, d.Binary)
	}

	dir, err := os.MkdirTemp("", "draco")
	if err != nil {
		return Geometry{}, fmt.Errorf("draco: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "primitive.drc")
	out := filepath.Join(dir, "primitive.obj")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return Geometry{}, fmt.Errorf("draco: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.Command(d.Binary, "-i", in, "-o", out)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Geometry{}, fmt.Errorf("draco: decode %d bytes: %w: %s", len(data), err, strings.TrimSpace(stderr.String()))
	}

	f, err := os.Open(out)
	if err != nil {
		return Geometry{}, fmt.Errorf("draco: decoder wrote no output: %w", err)
	}
	defer f.Close()

	geom, err := readOBJ(f)
	if err != nil {
		return Geometry{}, fmt.Errorf("draco: %w", err)
	}
	logger.Log.Debug("Draco primitive decoded",
		zap.Int("bytes", len(data)),
		zap.Int("vertices", len(geom.Positions)),
		zap.Int("indices", len(geom.Indices)))
	return geom, nil
}

func parseDracoExtension(v interface{}) (dracoExtension, error) {
	var ext dracoExtension
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return ext, fmt.Errorf("draco: extension: %w", err)
		}
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return ext, fmt.Errorf("draco: extension: %w", err)
	}
	if _, ok := ext.Attributes[gltf.POSITION]; !ok {
		return ext, errors.New("draco: extension has no POSITION attribute")
	}
	return ext, nil
}

type objCorner struct {
	v, vt, vn int
}

// readOBJ turns triangulated OBJ into indexed geometry, one vertex per distinct
// v/vt/vn triple. Normals default to +Y when the file has none.
func readOBJ(r io.Reader) (Geometry, error) {
	var (
		positions [][3]float32
		uvs       [][2]float32
		normals   [][3]float32
		geom      Geometry
	)
	vertexByCorner := make(map[objCorner]uint32)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "v":
			p, err := parseFloats(parts[1:], 3)
			if err != nil {
				return geom, fmt.Errorf("obj line %d: %w", line, err)
			}
			positions = append(positions, [3]float32{p[0], p[1], p[2]})
		case "vt":
			p, err := parseFloats(parts[1:], 2)
			if err != nil {
				return geom, fmt.Errorf("obj line %d: %w", line, err)
			}
			uvs = append(uvs, [2]float32{p[0], p[1]})
		case "vn":
			p, err := parseFloats(parts[1:], 3)
			if err != nil {
				return geom, fmt.Errorf("obj line %d: %w", line, err)
			}
			normals = append(normals, [3]float32{p[0], p[1], p[2]})
		case "f":
			if len(parts) < 4 {
				return geom, fmt.Errorf("obj line %d: face with %d corners", line, len(parts)-1)
			}
			corners := make([]uint32, 0, len(parts)-1)
			for _, part := range parts[1:] {
				c, err := parseCorner(part, len(positions), len(uvs), len(normals))
				if err != nil {
					return geom, fmt.Errorf("obj line %d: %w", line, err)
				}
				idx, ok := vertexByCorner[c]
				if !ok {
					idx = uint32(len(geom.Positions))
					vertexByCorner[c] = idx
					geom.Positions = append(geom.Positions, positions[c.v])
					geom.UVs = append(geom.UVs, [2]float32{})
					geom.Normals = append(geom.Normals, [3]float32{0, 1, 0})
					if c.vt >= 0 {
						geom.UVs[idx] = uvs[c.vt]
					}
					if c.vn >= 0 {
						geom.Normals[idx] = normals[c.vn]
					}
				}
				corners = append(corners, idx)
			}
			// polygons are fanned into triangles
			for i := 1; i+1 < len(corners); i++ {
				geom.Indices = append(geom.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return geom, err
	}
	if len(geom.Indices) == 0 {
		return geom, errors.New("obj has no faces")
	}
	return geom, nil
}

func parseFloats(parts []string, n int) ([]float32, error) {
	if len(parts) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(parts))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner reads v, v/vt, v//vn or v/vt/vn. Indices are 1-based; negative ones count from the end.
func parseCorner(s string, nv, nvt, nvn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	fields := strings.Split(s, "/")
	if len(fields) > 3 {
		return c, fmt.Errorf("invalid face corner %q", s)
	}
	targets := []*int{&c.v, &c.vt, &c.vn}
	counts := []int{nv, nvt, nvn}
	for i, field := range fields {
		if field == "" {
			if i == 0 {
				return c, fmt.Errorf("face corner %q has no vertex", s)
			}
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return c, fmt.Errorf("invalid face corner %q: %w", s, err)
		}
		if n < 0 {
			n = counts[i] + n + 1
		}
		if n < 1 || n > counts[i] {
			return c, fmt.Errorf("face corner %q: index %s out of range (%d)", s, field, counts[i])
		}
		*targets[i] = n - 1
	}
	return c, nil
}
