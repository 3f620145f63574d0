// Package kernel defines the mesh-kernel capability the operators call into
// and a reference implementation that runs without a host.
//
// Every operation takes its input by pointer and returns a new mesh; inputs
// are never modified.
package kernel

import (
	"fmt"

	"github.com/Faultbox/meshkit/internal/scene"
	kmath "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Kernel is the set of geometry operations provided by the host.
type Kernel interface {
	// Decimate reduces the triangle count to about ratio of the input.
	Decimate(m *mesh.Mesh, ratio float64) (*mesh.Mesh, error)
	// Triangulate splits every polygon into triangles.
	Triangulate(m *mesh.Mesh) (*mesh.Mesh, error)
	// RecalcNormals makes face winding consistent, pointing outward (or
	// inward when inside is set), and recomputes vertex normals.
	RecalcNormals(m *mesh.Mesh, inside bool) (*mesh.Mesh, error)
	// MergeByDistance welds vertices closer than threshold and returns the
	// number of vertices removed.
	MergeByDistance(m *mesh.Mesh, threshold float64) (*mesh.Mesh, int, error)
	// ConvexHull returns a closed hull enclosing every vertex.
	ConvexHull(m *mesh.Mesh) (*mesh.Mesh, error)
	// Transform bakes mat into the vertex data.
	Transform(m *mesh.Mesh, mat kmath.Mat4) (*mesh.Mesh, error)
}

// Evaluate applies a modifier stack to m in order and returns the result.
// m itself is left untouched.
func Evaluate(k Kernel, m *mesh.Mesh, mods []scene.Modifier) (*mesh.Mesh, error) {
	out := m
	for _, mod := range mods {
		var err error
		out, err = ApplyModifier(k, out, mod)
		if err != nil {
			return nil, err
		}
	}
	if out == m {
		out = m.Clone()
	}
	return out, nil
}

// ApplyModifier commits a single modifier into a copy of m.
func ApplyModifier(k Kernel, m *mesh.Mesh, mod scene.Modifier) (*mesh.Mesh, error) {
	switch mod.Kind {
	case scene.ModDecimate:
		return k.Decimate(m, mod.Ratio)
	case scene.ModTriangulate:
		return k.Triangulate(m)
	case scene.ModWeld:
		out, _, err := k.MergeByDistance(m, mod.Distance)
		return out, err
	default:
		return nil, fmt.Errorf("modifier %q: unsupported kind %q", mod.Name, mod.Kind)
	}
}
