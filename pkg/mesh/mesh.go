// Package mesh provides the polygon mesh container shared by the scene, the
// mesh kernel and the exporters.
package mesh

import (
	"fmt"

	kmath "github.com/Faultbox/meshkit/pkg/math"
)

// Face is a polygon given as counter-clockwise vertex indices.
type Face []uint32

// Material is a surface material. Images lists the baked images attached to
// the material; ActiveImage names the one the bake engine writes into.
type Material struct {
	Name        string     `yaml:"name"`
	BaseColor   [4]float32 `yaml:"base_color"`
	Roughness   float32    `yaml:"roughness"`
	Emission    [3]float32 `yaml:"emission,omitempty"`
	Images      []string   `yaml:"images,omitempty"`
	ActiveImage string     `yaml:"active_image,omitempty"`
}

// Mesh holds polygonal geometry. Normals and UVs, when present, are
// per-vertex and parallel to Positions.
type Mesh struct {
	Name      string       `yaml:"name"`
	Positions [][3]float32 `yaml:"positions"`
	Normals   [][3]float32 `yaml:"normals,omitempty"`
	UVs       [][2]float32 `yaml:"uvs,omitempty"`
	Faces     []Face       `yaml:"faces"`
	Materials []Material   `yaml:"materials,omitempty"`
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Clone returns an independent deep copy of m. Mutating the copy never
// affects m.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Name:      m.Name,
		Positions: append([][3]float32(nil), m.Positions...),
		Normals:   append([][3]float32(nil), m.Normals...),
		UVs:       append([][2]float32(nil), m.UVs...),
	}
	for _, f := range m.Faces {
		out.Faces = append(out.Faces, append(Face(nil), f...))
	}
	for _, mat := range m.Materials {
		mat.Images = append([]string(nil), mat.Images...)
		out.Materials = append(out.Materials, mat)
	}
	return out
}

// IsEmpty reports whether the mesh has no vertices.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Positions) == 0
}

// TriangleCount returns the number of triangles a fan triangulation of
// every face would produce.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// Triangles returns a fan triangulation of every face as flat index
// triples. Faces with fewer than three vertices are skipped.
func (m *Mesh) Triangles() []uint32 {
	out := make([]uint32, 0, m.TriangleCount()*3)
	for _, f := range m.Faces {
		for i := 2; i < len(f); i++ {
			out = append(out, f[0], f[i-1], f[i])
		}
	}
	return out
}

// Bounds returns the bounding box of the positions. An empty mesh yields a
// zero box.
func (m *Mesh) Bounds() Bounds {
	if len(m.Positions) == 0 {
		return Bounds{}
	}
	lo := kmath.V(m.Positions[0])
	hi := lo
	for _, p := range m.Positions[1:] {
		v := kmath.V(p)
		lo = lo.Min(v)
		hi = hi.Max(v)
	}
	return Bounds{Min: lo.Array(), Max: hi.Array()}
}

// Validate checks that every face index refers to an existing vertex and
// that per-vertex attributes match the vertex count.
func (m *Mesh) Validate() error {
	n := uint32(len(m.Positions))
	for fi, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d has %d vertices", fi, len(f))
		}
		for _, idx := range f {
			if idx >= n {
				return fmt.Errorf("face %d references vertex %d of %d", fi, idx, n)
			}
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("normals count %d does not match vertex count %d", len(m.Normals), n)
	}
	if len(m.UVs) != 0 && len(m.UVs) != len(m.Positions) {
		return fmt.Errorf("uv count %d does not match vertex count %d", len(m.UVs), n)
	}
	return nil
}

// Cube returns an axis-aligned cube of the given half extent centred on the
// origin, with quad faces.
func Cube(name string, half float32) *Mesh {
	h := half
	return &Mesh{
		Name: name,
		Positions: [][3]float32{
			{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
			{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
		},
		Faces: []Face{
			{0, 3, 2, 1}, // -Z
			{4, 5, 6, 7}, // +Z
			{0, 1, 5, 4}, // -Y
			{2, 3, 7, 6}, // +Y
			{1, 2, 6, 5}, // +X
			{0, 4, 7, 3}, // -X
		},
	}
}
