// Package meshio decodes the vertex/index arrays the engine needs out
// of a glTF/GLB file, narrowed to position/normal/color and indices —
// no materials, textures, or node hierarchy — deliberately narrowed
// rather than a full glTF decoder. Grounded on
// mrigankad-gorenderengine/scene/gltf_loader.go's LoadGLTF/
// loadGLTFPrimitive (modeler.ReadPosition/ReadNormal/ReadIndices),
// narrowed to the first mesh's first primitive.
package meshio

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Vertex mirrors the engine's interleaved MeshVertex layout: position,
// normal, and an RGBA color (defaulted to white when the source has no
// COLOR_0 attribute).
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// Decoded holds exactly what the engine's mesh table needs to build a
// vertex and index buffer pair.
type Decoded struct {
	Vertices []Vertex
	Indices  []uint32
}

// Load opens a .glb or .gltf file and decodes its first mesh's first
// primitive. Returns an error (not a panic) on missing geometry or
// decode failure — the caller (internal/mesh's Table.Load, behind
// load_mesh) falls back to the built-in cube slot, tagged MeshLoadFailure.
func Load(path string) (*Decoded, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return nil, fmt.Errorf("gltf %q: no mesh primitives", path)
	}
	prim := doc.Meshes[0].Primitives[0]

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("gltf %q: primitive has no POSITION attribute", path)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("gltf %q: positions: %w", path, err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("gltf %q: empty position accessor", path)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	var colors [][4]uint8
	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, _ = modeler.ReadColor(doc, doc.Accessors[idx], nil)
	}

	verts := make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{
			Position: p,
			Normal:   [3]float32{0, 1, 0},
			Color:    [4]float32{1, 1, 1, 1},
		}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(colors) {
			c := colors[i]
			v.Color = [4]float32{
				float32(c[0]) / 255,
				float32(c[1]) / 255,
				float32(c[2]) / 255,
				float32(c[3]) / 255,
			}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("gltf %q: indices: %w", path, err)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("gltf %q: no index accessor (unindexed primitives unsupported)", path)
	}

	return &Decoded{Vertices: verts, Indices: indices}, nil
}
