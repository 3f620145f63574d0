package cleanup

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

type brokenKernel struct {
	kernel.Reference
}

func (brokenKernel) Triangulate(*mesh.Mesh) (*mesh.Mesh, error) {
	return nil, errors.New("non-manifold geometry")
}

func setup(t *testing.T) (*scene.Document, *scene.Object, *Tools) {
	t.Helper()
	doc := scene.New()
	obj := doc.Add(scene.NewMeshObject("Crate", mesh.Cube("Crate", 1)))
	doc.SelectOnly(obj.ID)
	return doc, obj, New(doc, kernel.NewReference(), nil)
}

func TestCreateConvexHull(t *testing.T) {
	doc, obj, tools := setup(t)
	obj.Location = [3]float32{3, 0, -2}
	obj.Rotation = [3]float32{0, 0, 1}

	hull, err := tools.CreateConvexHull()
	require.NoError(t, err)
	assert.Equal(t, "Crate_ConvexHull", hull.Name)
	assert.Equal(t, obj.Location, hull.Location)
	assert.Equal(t, [3]float32{}, hull.Rotation)
	assert.Equal(t, 2, doc.Len())
	assert.Len(t, hull.Mesh.Positions, 8)

	// The source is untouched and stays active.
	assert.Len(t, obj.Mesh.Faces, 6)
	assert.Same(t, obj, doc.Active())
}

func TestCreateConvexHullEmptyMesh(t *testing.T) {
	doc, obj, tools := setup(t)
	obj.Mesh = &mesh.Mesh{Name: "Crate"}

	_, err := tools.CreateConvexHull()
	assert.Equal(t, fault.KindInvalidTarget, fault.KindOf(err))
	assert.Equal(t, 1, doc.Len())
}

func TestToolsNeedActiveMesh(t *testing.T) {
	doc := scene.New()
	lamp := doc.Add(&scene.Object{Name: "Lamp", Type: scene.TypeLight})
	tools := New(doc, kernel.NewReference(), nil)

	calls := map[string]func() error{
		"hull":        func() error { _, err := tools.CreateConvexHull(); return err },
		"triangulate": tools.Triangulate,
		"normals":     tools.CorrectNormals,
		"merge":       func() error { _, err := tools.MergeVertices(0.001); return err },
		"transforms":  tools.ApplyTransforms,
	}
	for name, call := range calls {
		doc.SetActive("")
		assert.Equal(t, fault.KindInvalidTarget, fault.KindOf(call()), name+" without active")
		doc.SelectOnly(lamp.ID)
		assert.Equal(t, fault.KindInvalidTarget, fault.KindOf(call()), name+" on a light")
	}
}

func TestTriangulate(t *testing.T) {
	_, obj, tools := setup(t)
	require.NoError(t, tools.Triangulate())
	assert.Len(t, obj.Mesh.Faces, 12)
	for _, f := range obj.Mesh.Faces {
		assert.Len(t, f, 3)
	}
}

func TestTriangulateFailureLeavesMesh(t *testing.T) {
	doc, obj, _ := setup(t)
	before := obj.Mesh
	tools := New(doc, brokenKernel{}, nil)

	err := tools.Triangulate()
	assert.ErrorIs(t, err, fault.ErrHostOperation)
	assert.Contains(t, err.Error(), "non-manifold")
	assert.Same(t, before, obj.Mesh)
}

func TestCorrectNormals(t *testing.T) {
	_, obj, tools := setup(t)
	// Flip the +Z face inward.
	obj.Mesh.Faces[1] = mesh.Face{7, 6, 5, 4}

	require.NoError(t, tools.CorrectNormals())
	assert.Equal(t, mesh.Face{4, 5, 6, 7}, obj.Mesh.Faces[1])
	require.Len(t, obj.Mesh.Normals, 8)
	// Corner normals point away from the centre.
	n := obj.Mesh.Normals[6]
	assert.Greater(t, n[0], float32(0))
	assert.Greater(t, n[1], float32(0))
	assert.Greater(t, n[2], float32(0))
}

func TestMergeVerticesUsesUnitScale(t *testing.T) {
	doc, obj, tools := setup(t)
	// The -Z face uses a copy of vertex 0 that sits 0.0005 units away.
	obj.Mesh.Positions = append(obj.Mesh.Positions, [3]float32{-1, -1, -1.0005})
	obj.Mesh.Faces[0] = mesh.Face{8, 3, 2, 1}

	// With 10m units a 1mm weld distance is 0.0001 units, short of the gap.
	doc.UnitScale = 10
	removed, err := tools.MergeVertices(DefaultMergeDistance)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, obj.Mesh.Positions, 9)

	doc.UnitScale = 1
	removed, err = tools.MergeVertices(DefaultMergeDistance)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, obj.Mesh.Positions, 8)
	assert.Len(t, obj.Mesh.Faces, 6)

	_, err = tools.MergeVertices(-1)
	assert.Error(t, err)
}

func TestApplyTransforms(t *testing.T) {
	doc, obj, tools := setup(t)
	obj.Location = [3]float32{10, 0, 0}
	obj.Scale = [3]float32{2, 2, 2}
	obj.Rotation = [3]float32{0, 0, math.Pi}

	other := doc.Add(scene.NewMeshObject("Other", mesh.Cube("Other", 1)))
	other.Location = [3]float32{0, 5, 0}
	unselected := doc.Add(scene.NewMeshObject("Left", mesh.Cube("Left", 1)))
	unselected.Location = [3]float32{0, 0, 7}
	doc.Select(other.ID, true)

	require.NoError(t, tools.ApplyTransforms())

	assert.Equal(t, [3]float32{}, obj.Location)
	assert.Equal(t, [3]float32{}, obj.Rotation)
	assert.Equal(t, [3]float32{1, 1, 1}, obj.Scale)
	b := obj.Mesh.Bounds()
	assert.InDelta(t, 8, b.Min[0], 1e-4)
	assert.InDelta(t, 12, b.Max[0], 1e-4)
	assert.InDelta(t, 2, b.Max[2], 1e-4)

	assert.Equal(t, [3]float32{}, other.Location)
	assert.InDelta(t, 6, other.Mesh.Bounds().Max[1], 1e-4)

	assert.Equal(t, [3]float32{0, 0, 7}, unselected.Location)
	assert.Equal(t, float32(1), unselected.Mesh.Bounds().Max[2])
}
