// Package cleanup holds the mesh tidy-up tools that work on the active
// object: convex hull, triangulation, normal correction, vertex welding and
// transform application.
package cleanup

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/scene"
	kmath "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// DefaultMergeDistance is the weld distance in metres.
const DefaultMergeDistance = 0.001

// Tools runs cleanup operations against a document.
type Tools struct {
	doc    *scene.Document
	kernel kernel.Kernel
	log    *zap.Logger
}

// New returns cleanup tools backed by k.
func New(doc *scene.Document, k kernel.Kernel, log *zap.Logger) *Tools {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tools{doc: doc, kernel: k, log: log.Named("cleanup")}
}

// HullName is the name given to the hull object created for obj.
func HullName(obj *scene.Object) string {
	return obj.Name + "_ConvexHull"
}

// CreateConvexHull adds a new object holding the convex hull of the active
// mesh, placed at the source object's location. The source is not changed.
func (t *Tools) CreateConvexHull() (*scene.Object, error) {
	src, err := t.active()
	if err != nil {
		return nil, err
	}
	if len(src.Mesh.Positions) == 0 {
		return nil, fault.InvalidTarget("mesh %q has no vertices", src.Name)
	}

	hull, err := t.kernel.ConvexHull(src.Mesh)
	if err != nil {
		return nil, fault.Host("convex hull", err)
	}
	hull.Name = HullName(src)

	obj := scene.NewMeshObject(HullName(src), hull)
	obj.Location = src.Location
	t.doc.Add(obj)

	t.log.Info("created convex hull",
		zap.String("source", src.Name),
		zap.Int("vertices", len(hull.Positions)))
	return obj, nil
}

// Triangulate splits every polygon of the active mesh into triangles.
func (t *Tools) Triangulate() error {
	return t.replace("triangulate", func(m *mesh.Mesh) (*mesh.Mesh, error) {
		return t.kernel.Triangulate(m)
	})
}

// CorrectNormals makes the active mesh's winding consistent and outward.
func (t *Tools) CorrectNormals() error {
	return t.replace("correct normals", func(m *mesh.Mesh) (*mesh.Mesh, error) {
		return t.kernel.RecalcNormals(m, false)
	})
}

// MergeVertices welds vertices of the active mesh closer than distance,
// given in metres and converted to scene units. It returns the number of
// vertices removed.
func (t *Tools) MergeVertices(distance float64) (int, error) {
	if distance < 0 {
		return 0, fmt.Errorf("merge distance %g is negative", distance)
	}
	threshold := distance
	if t.doc.UnitScale > 0 {
		threshold = distance / t.doc.UnitScale
	}

	var removed int
	err := t.replace("merge vertices", func(m *mesh.Mesh) (*mesh.Mesh, error) {
		out, n, err := t.kernel.MergeByDistance(m, threshold)
		removed = n
		return out, err
	})
	if err != nil {
		return 0, err
	}
	t.log.Debug("merged vertices", zap.Int("removed", removed), zap.Float64("threshold", threshold))
	return removed, nil
}

// ApplyTransforms bakes location, rotation and scale into the mesh data of
// every selected mesh object and resets their transforms to identity.
func (t *Tools) ApplyTransforms() error {
	if _, err := t.active(); err != nil {
		return err
	}

	// Compute every result before touching the scene so a failure leaves
	// all objects as they were.
	type pending struct {
		obj *scene.Object
		m   *mesh.Mesh
	}
	var todo []pending
	for _, obj := range t.doc.Selected() {
		if !obj.IsMesh() || obj.Mesh == nil {
			continue
		}
		mat := kmath.Compose(obj.Location, obj.Rotation, obj.Scale)
		m, err := t.kernel.Transform(obj.Mesh, mat)
		if err != nil {
			return fault.Host(fmt.Sprintf("apply transforms on %s", obj.Name), err)
		}
		todo = append(todo, pending{obj, m})
	}

	for _, p := range todo {
		p.obj.Mesh = p.m
		p.obj.Location = [3]float32{}
		p.obj.Rotation = [3]float32{}
		p.obj.Scale = [3]float32{1, 1, 1}
	}
	t.log.Info("applied transforms", zap.Int("objects", len(todo)))
	return nil
}

// replace runs op on the active mesh and swaps the result in on success.
func (t *Tools) replace(name string, op func(*mesh.Mesh) (*mesh.Mesh, error)) error {
	obj, err := t.active()
	if err != nil {
		return err
	}
	out, err := op(obj.Mesh)
	if err != nil {
		return fault.Host(name, err)
	}
	obj.Mesh = out
	t.log.Info(name, zap.String("object", obj.Name), zap.Int("faces", len(out.Faces)))
	return nil
}

func (t *Tools) active() (*scene.Object, error) {
	obj := t.doc.Active()
	if !obj.IsMesh() || obj.Mesh == nil {
		return nil, fault.InvalidTarget("active object is not a mesh")
	}
	return obj, nil
}
