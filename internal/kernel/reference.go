package kernel

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"

	kmath "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// ErrEmptyMesh is returned for operations that need at least one vertex.
var ErrEmptyMesh = errors.New("mesh has no vertices")

// Reference is a small deterministic kernel. It stands in for the host's
// geometry library: decimation drops the smallest triangles first and the
// convex hull is approximated by the bounding box.
type Reference struct{}

// NewReference returns the reference kernel.
func NewReference() *Reference {
	return &Reference{}
}

// Decimate keeps the ceil(ratio*n) largest triangles, at least one.
func (Reference) Decimate(m *mesh.Mesh, ratio float64) (*mesh.Mesh, error) {
	if ratio < 0 || ratio > 1 || gomath.IsNaN(ratio) {
		return nil, fmt.Errorf("decimate ratio %v outside [0, 1]", ratio)
	}
	if ratio == 1 {
		return m.Clone(), nil
	}

	tris := m.Triangles()
	n := len(tris) / 3
	if n == 0 {
		return m.Clone(), nil
	}
	keep := int(gomath.Ceil(ratio * float64(n)))
	keep = max(keep, 1)

	type scored struct {
		idx  int
		area float32
	}
	order := make([]scored, n)
	for i := 0; i < n; i++ {
		a := kmath.V(m.Positions[tris[i*3]])
		b := kmath.V(m.Positions[tris[i*3+1]])
		c := kmath.V(m.Positions[tris[i*3+2]])
		order[i] = scored{idx: i, area: b.Sub(a).Cross(c.Sub(a)).Length() / 2}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].area > order[j].area })
	order = order[:keep]
	sort.Slice(order, func(i, j int) bool { return order[i].idx < order[j].idx })

	faces := make([]mesh.Face, 0, keep)
	for _, s := range order {
		faces = append(faces, mesh.Face{tris[s.idx*3], tris[s.idx*3+1], tris[s.idx*3+2]})
	}
	out := m.Clone()
	out.Faces = faces
	return compact(out), nil
}

// Triangulate fan-triangulates every face.
func (Reference) Triangulate(m *mesh.Mesh) (*mesh.Mesh, error) {
	tris := m.Triangles()
	out := m.Clone()
	out.Faces = make([]mesh.Face, 0, len(tris)/3)
	for i := 0; i+2 < len(tris); i += 3 {
		out.Faces = append(out.Faces, mesh.Face{tris[i], tris[i+1], tris[i+2]})
	}
	return out, nil
}

// RecalcNormals orients every face away from (or toward) the mesh centroid
// and recomputes area-weighted vertex normals.
func (Reference) RecalcNormals(m *mesh.Mesh, inside bool) (*mesh.Mesh, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	out := m.Clone()
	centroid := centroidOf(out.Positions)

	for fi, f := range out.Faces {
		if len(f) < 3 {
			continue
		}
		n := faceNormal(out.Positions, f)
		toFace := faceCenter(out.Positions, f).Sub(centroid)
		outward := n.Dot(toFace) >= 0
		if outward == inside {
			out.Faces[fi] = reversed(f)
		}
	}

	normals := make([]kmath.Vec3, len(out.Positions))
	for _, f := range out.Faces {
		for i := 2; i < len(f); i++ {
			a := kmath.V(out.Positions[f[0]])
			b := kmath.V(out.Positions[f[i-1]])
			c := kmath.V(out.Positions[f[i]])
			// Unnormalized cross product weights by triangle area.
			w := b.Sub(a).Cross(c.Sub(a))
			normals[f[0]] = normals[f[0]].Add(w)
			normals[f[i-1]] = normals[f[i-1]].Add(w)
			normals[f[i]] = normals[f[i]].Add(w)
		}
	}
	out.Normals = make([][3]float32, len(normals))
	for i, n := range normals {
		out.Normals[i] = n.Normalize().Array()
	}
	return out, nil
}

// MergeByDistance welds vertices within threshold of an earlier vertex.
// Faces that collapse below three distinct vertices are removed.
func (Reference) MergeByDistance(m *mesh.Mesh, threshold float64) (*mesh.Mesh, int, error) {
	if threshold < 0 {
		return nil, 0, fmt.Errorf("merge threshold %v is negative", threshold)
	}
	out := m.Clone()
	if len(out.Positions) == 0 {
		return out, 0, nil
	}

	cell := threshold
	if cell <= 0 {
		cell = 1e-9
	}
	type key [3]int64
	keyOf := func(p [3]float32) key {
		return key{
			int64(gomath.Floor(float64(p[0]) / cell)),
			int64(gomath.Floor(float64(p[1]) / cell)),
			int64(gomath.Floor(float64(p[2]) / cell)),
		}
	}

	grid := make(map[key][]uint32)
	remap := make([]uint32, len(out.Positions))
	for i, p := range out.Positions {
		remap[i] = uint32(i)
		k := keyOf(p)
		found := false
	search:
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, j := range grid[key{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if float64(kmath.V(p).Distance(kmath.V(out.Positions[j]))) <= threshold {
							remap[i] = j
							found = true
							break search
						}
					}
				}
			}
		}
		if !found {
			grid[k] = append(grid[k], uint32(i))
		}
	}

	var faces []mesh.Face
	for _, f := range out.Faces {
		var nf mesh.Face
		for _, idx := range f {
			r := remap[idx]
			if len(nf) > 0 && (nf[len(nf)-1] == r) {
				continue
			}
			nf = append(nf, r)
		}
		if len(nf) > 1 && nf[0] == nf[len(nf)-1] {
			nf = nf[:len(nf)-1]
		}
		if distinct(nf) >= 3 {
			faces = append(faces, nf)
		}
	}
	out.Faces = faces

	before := len(out.Positions)
	out = compact(out)
	return out, before - len(out.Positions), nil
}

// ConvexHull returns the bounding box of m as a closed quad mesh.
func (Reference) ConvexHull(m *mesh.Mesh) (*mesh.Mesh, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	b := m.Bounds()
	lo, hi := b.Min, b.Max
	hull := &mesh.Mesh{
		Positions: [][3]float32{
			{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {lo[0], hi[1], lo[2]},
			{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
		},
		Faces: mesh.Cube("", 1).Faces,
	}
	return hull, nil
}

// Transform bakes mat into positions and normals. A mirroring matrix also
// flips face winding so faces keep pointing outward.
func (Reference) Transform(m *mesh.Mesh, mat kmath.Mat4) (*mesh.Mesh, error) {
	out := m.Clone()
	for i, p := range out.Positions {
		out.Positions[i] = mat.TransformPoint(p)
	}
	nm := mat.NormalMatrix()
	for i, n := range out.Normals {
		out.Normals[i] = kmath.V(nm.TransformDirection(n)).Normalize().Array()
	}
	if determinant3(mat) < 0 {
		for i, f := range out.Faces {
			out.Faces[i] = reversed(f)
		}
	}
	return out, nil
}

// compact drops vertices no face references and renumbers the faces.
func compact(m *mesh.Mesh) *mesh.Mesh {
	used := make([]int, len(m.Positions))
	for i := range used {
		used[i] = -1
	}
	next := 0
	for _, f := range m.Faces {
		for _, idx := range f {
			if used[idx] < 0 {
				used[idx] = next
				next++
			}
		}
	}
	if next == len(m.Positions) {
		identity := true
		for i, u := range used {
			if u != i {
				identity = false
				break
			}
		}
		if identity {
			return m
		}
	}

	positions := make([][3]float32, next)
	var normals [][3]float32
	if len(m.Normals) > 0 {
		normals = make([][3]float32, next)
	}
	var uvs [][2]float32
	if len(m.UVs) > 0 {
		uvs = make([][2]float32, next)
	}
	for old, nu := range used {
		if nu < 0 {
			continue
		}
		positions[nu] = m.Positions[old]
		if normals != nil {
			normals[nu] = m.Normals[old]
		}
		if uvs != nil {
			uvs[nu] = m.UVs[old]
		}
	}
	for _, f := range m.Faces {
		for i, idx := range f {
			f[i] = uint32(used[idx])
		}
	}
	m.Positions, m.Normals, m.UVs = positions, normals, uvs
	return m
}

func centroidOf(ps [][3]float32) kmath.Vec3 {
	var sum kmath.Vec3
	for _, p := range ps {
		sum = sum.Add(kmath.V(p))
	}
	return sum.Scale(1 / float32(len(ps)))
}

func faceCenter(ps [][3]float32, f mesh.Face) kmath.Vec3 {
	var sum kmath.Vec3
	for _, idx := range f {
		sum = sum.Add(kmath.V(ps[idx]))
	}
	return sum.Scale(1 / float32(len(f)))
}

// faceNormal uses Newell's method so non-planar polygons still get a
// sensible normal.
func faceNormal(ps [][3]float32, f mesh.Face) kmath.Vec3 {
	if len(f) == 3 {
		return kmath.TriangleNormal(kmath.V(ps[f[0]]), kmath.V(ps[f[1]]), kmath.V(ps[f[2]]))
	}
	var n kmath.Vec3
	for i := range f {
		cur := ps[f[i]]
		nxt := ps[f[(i+1)%len(f)]]
		n.X += (cur[1] - nxt[1]) * (cur[2] + nxt[2])
		n.Y += (cur[2] - nxt[2]) * (cur[0] + nxt[0])
		n.Z += (cur[0] - nxt[0]) * (cur[1] + nxt[1])
	}
	return n.Normalize()
}

func reversed(f mesh.Face) mesh.Face {
	out := make(mesh.Face, len(f))
	for i, idx := range f {
		out[len(f)-1-i] = idx
	}
	return out
}

func distinct(f mesh.Face) int {
	seen := make(map[uint32]struct{}, len(f))
	for _, idx := range f {
		seen[idx] = struct{}{}
	}
	return len(seen)
}

func determinant3(m kmath.Mat4) float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}
