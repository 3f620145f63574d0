package kernel

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshkit/internal/scene"
	kmath "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

func TestDecimate(t *testing.T) {
	k := NewReference()
	cube := mesh.Cube("Cube", 1)

	tests := []struct {
		ratio     float64
		wantFaces int
	}{
		{1, 6},
		{0.5, 6},
		{0.25, 3},
		{0, 1},
	}

	for _, tt := range tests {
		out, err := k.Decimate(cube, tt.ratio)
		require.NoError(t, err)
		assert.Len(t, out.Faces, tt.wantFaces, "ratio %v", tt.ratio)
		assert.NoError(t, out.Validate(), "ratio %v", tt.ratio)
	}

	// Input is never modified.
	assert.Equal(t, mesh.Cube("Cube", 1), cube)

	_, err := k.Decimate(cube, 1.5)
	assert.Error(t, err)
	_, err = k.Decimate(cube, gomath.NaN())
	assert.Error(t, err)
}

func TestDecimateDropsUnusedVertices(t *testing.T) {
	out, err := NewReference().Decimate(mesh.Cube("Cube", 1), 0)
	require.NoError(t, err)
	assert.Len(t, out.Positions, 3)
}

func TestTriangulate(t *testing.T) {
	out, err := NewReference().Triangulate(mesh.Cube("Cube", 1))
	require.NoError(t, err)
	assert.Len(t, out.Faces, 12)
	for _, f := range out.Faces {
		assert.Len(t, f, 3)
	}
}

func TestRecalcNormalsFixesFlippedFace(t *testing.T) {
	cube := mesh.Cube("Cube", 1)
	cube.Faces[1] = mesh.Face{7, 6, 5, 4} // +Z face pointing inward

	out, err := NewReference().RecalcNormals(cube, false)
	require.NoError(t, err)
	assert.Equal(t, mesh.Face{4, 5, 6, 7}, out.Faces[1])
	require.Len(t, out.Normals, 8)

	// Corner normals point away from the centre.
	for i, n := range out.Normals {
		p := kmath.V(out.Positions[i])
		assert.Greater(t, kmath.V(n).Dot(p), float32(0), "vertex %d", i)
	}

	in, err := NewReference().RecalcNormals(cube, true)
	require.NoError(t, err)
	assert.Equal(t, mesh.Face{7, 6, 5, 4}, in.Faces[1])

	_, err = NewReference().RecalcNormals(&mesh.Mesh{}, false)
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestMergeByDistance(t *testing.T) {
	m := &mesh.Mesh{
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			{1.0005, 0, 0}, {1, 1.0002, 0},
		},
		Faces: []mesh.Face{{0, 1, 2}, {0, 4, 5, 3}},
	}

	out, removed, err := NewReference().MergeByDistance(m, 0.001)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, out.Positions, 4)
	assert.Equal(t, []mesh.Face{{0, 1, 2}, {0, 1, 2, 3}}, out.Faces)

	// A face collapsing to a point is dropped.
	sliver := &mesh.Mesh{
		Positions: [][3]float32{{0, 0, 0}, {0.0001, 0, 0}, {0, 0.0001, 0}},
		Faces:     []mesh.Face{{0, 1, 2}},
	}
	out, _, err = NewReference().MergeByDistance(sliver, 0.01)
	require.NoError(t, err)
	assert.Empty(t, out.Faces)

	_, _, err = NewReference().MergeByDistance(m, -1)
	assert.Error(t, err)
}

func TestConvexHull(t *testing.T) {
	m := &mesh.Mesh{
		Positions: [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 3, 0}, {0, 0, 4}},
		Faces:     []mesh.Face{{0, 1, 2}, {0, 1, 3}},
	}
	hull, err := NewReference().ConvexHull(m)
	require.NoError(t, err)
	require.NoError(t, hull.Validate())
	assert.Equal(t, mesh.Bounds{Min: [3]float32{0, 0, 0}, Max: [3]float32{2, 3, 4}}, hull.Bounds())

	_, err = NewReference().ConvexHull(&mesh.Mesh{})
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestTransformMirrorFlipsWinding(t *testing.T) {
	cube := mesh.Cube("Cube", 1)
	out, err := NewReference().Transform(cube, kmath.Scale(-1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, -1, -1}, out.Positions[0])
	assert.Equal(t, mesh.Face{1, 2, 3, 0}, out.Faces[0])

	moved, err := NewReference().Transform(cube, kmath.Translate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, cube.Faces, moved.Faces)
	assert.Equal(t, [3]float32{-1, -1, 4}, moved.Positions[0])
}

func TestEvaluate(t *testing.T) {
	k := NewReference()
	cube := mesh.Cube("Cube", 1)

	out, err := Evaluate(k, cube, []scene.Modifier{
		{Name: "Triangulate", Kind: scene.ModTriangulate},
		{Name: "LOD_Decimate", Kind: scene.ModDecimate, Ratio: 0.5},
	})
	require.NoError(t, err)
	assert.Len(t, out.Faces, 6)

	same, err := Evaluate(k, cube, nil)
	require.NoError(t, err)
	assert.NotSame(t, cube, same)
	assert.Equal(t, cube, same)

	_, err = Evaluate(k, cube, []scene.Modifier{{Name: "Bevel", Kind: "BEVEL"}})
	assert.Error(t, err)
}

func TestFaceNormalTriangleMatchesPolygon(t *testing.T) {
	ps := [][3]float32{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0}}

	tri := faceNormal(ps, mesh.Face{0, 1, 2})
	quad := faceNormal(ps, mesh.Face{0, 1, 2, 3})
	assert.Equal(t, kmath.Vec3{Z: 1}, tri)
	assert.InDelta(t, 1, quad.Z, 1e-6)

	assert.Equal(t, kmath.Vec3{}, faceNormal(ps, mesh.Face{0, 1, 1}))
}
