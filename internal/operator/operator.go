// Package operator exposes the user-facing entry points. Each call runs one
// action against the document and reports an Outcome; errors and panics
// never escape to the caller.
package operator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/bake"
	"github.com/Faultbox/meshkit/internal/cleanup"
	"github.com/Faultbox/meshkit/internal/export"
	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/lod"
	"github.com/Faultbox/meshkit/internal/scene"
)

// Status is the result class of an operator call.
type Status string

const (
	Finished  Status = "FINISHED"
	Cancelled Status = "CANCELLED"
)

// Outcome is what an operator reports back. Err is set whenever something
// failed, including partial failures of a Finished batch.
type Outcome struct {
	Status  Status
	Message string
	Err     error
}

// OK reports whether the operator finished without any failure.
func (o Outcome) OK() bool {
	return o.Status == Finished && o.Err == nil
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s: %s", o.Status, o.Message)
}

// Operators bundles the drivers behind the entry points.
type Operators struct {
	doc     *scene.Document
	LOD     *lod.Controller
	Export  *export.Driver
	Bake    *bake.Driver
	Cleanup *cleanup.Tools
	log     *zap.Logger
}

// New wires the drivers for doc using the given mesh kernel and bake engine.
func New(doc *scene.Document, k kernel.Kernel, engine bake.Engine, log *zap.Logger) *Operators {
	if log == nil {
		log = zap.NewNop()
	}
	return &Operators{
		doc:     doc,
		LOD:     lod.NewController(doc, k, log),
		Export:  export.NewDriver(doc, k, log),
		Bake:    bake.NewDriver(doc, engine, log),
		Cleanup: cleanup.New(doc, k, log),
		log:     log.Named("operator"),
	}
}

// run executes fn as operator name and converts its result to an Outcome.
func (o *Operators) run(name string, fn func() (string, error)) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: internal error: %v", name, r)
			o.log.Error("operator panicked", zap.String("operator", name), zap.Any("panic", r))
			out = Outcome{Status: Cancelled, Message: err.Error(), Err: err}
		}
	}()

	msg, err := fn()
	if err != nil {
		o.log.Warn("operator cancelled",
			zap.String("operator", name),
			zap.String("kind", fault.KindOf(err).String()),
			zap.Error(err))
		return Outcome{Status: Cancelled, Message: Describe(err), Err: err}
	}
	o.log.Info(msg, zap.String("operator", name))
	return Outcome{Status: Finished, Message: msg}
}

// Describe turns an error into the message shown to the user.
func Describe(err error) string {
	switch fault.KindOf(err) {
	case fault.KindInvalidTarget:
		return "Invalid target: " + err.Error()
	case fault.KindEmptySequence:
		return "No LODs: " + err.Error()
	case fault.KindIndexOutOfRange:
		return "No such LOD: " + err.Error()
	case fault.KindHostOperationFailed:
		return "Operation failed: " + err.Error()
	}
	return err.Error()
}

// lodBase returns the object whose LOD list the LOD operators work on: the
// active object, or its owner when the active object is itself a LOD.
func (o *Operators) lodBase() *scene.Object {
	active := o.doc.Active()
	if active == nil {
		return nil
	}
	if owner, ok := o.doc.LODOwner(active.ID); ok {
		return owner
	}
	return active
}

// AddLod adds a LOD to the active object.
func (o *Operators) AddLod() Outcome {
	return o.run("add_lod", func() (string, error) {
		base := o.lodBase()
		i, err := o.LOD.AddLod(base)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s", o.LOD.Entries(base)[i].Object.Name), nil
	})
}

// RemoveLod removes the last LOD of the active object.
func (o *Operators) RemoveLod() Outcome {
	return o.run("remove_lod", func() (string, error) {
		base := o.lodBase()
		if err := o.LOD.RemoveLod(base); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed LOD %d of %s", len(o.LOD.Entries(base))+1, base.Name), nil
	})
}

// ApplyLod commits the decimation of one LOD.
func (o *Operators) ApplyLod(index int) Outcome {
	return o.run("apply_lod", func() (string, error) {
		base := o.lodBase()
		if err := o.LOD.ApplyLod(base, index); err != nil {
			return "", err
		}
		return fmt.Sprintf("Applied LOD %d of %s", index+1, base.Name), nil
	})
}

// ApplyAllLods commits every Live LOD of the active object.
func (o *Operators) ApplyAllLods() Outcome {
	return o.run("apply_all_lods", func() (string, error) {
		base := o.lodBase()
		if err := o.LOD.ApplyAll(base); err != nil {
			return "", err
		}
		return fmt.Sprintf("Applied all LODs of %s", base.Name), nil
	})
}

// SelectLod selects one LOD object.
func (o *Operators) SelectLod(index int) Outcome {
	return o.run("select_lod", func() (string, error) {
		base := o.lodBase()
		if err := o.LOD.SelectLod(base, index); err != nil {
			return "", err
		}
		return fmt.Sprintf("Selected %s", o.doc.Active().Name), nil
	})
}

// SetLodRatio changes the decimation ratio of a Live LOD.
func (o *Operators) SetLodRatio(index int, ratio float64) Outcome {
	return o.run("set_lod_ratio", func() (string, error) {
		base := o.lodBase()
		if err := o.LOD.SetRatio(base, index, ratio); err != nil {
			return "", err
		}
		return fmt.Sprintf("LOD %d of %s ratio set to %g", index+1, base.Name, ratio), nil
	})
}

// exportBatch runs an export pass whose items may fail individually.
func (o *Operators) exportBatch(name string, pass func() (export.Report, error)) Outcome {
	var rep export.Report
	out := o.run(name, func() (string, error) {
		var err error
		rep, err = pass()
		if err != nil {
			return "", err
		}
		if len(rep.Exported) == 0 && len(rep.Failed) == 0 && len(rep.Skipped) == 0 {
			return "Nothing to export", nil
		}
		return rep.Summary(), nil
	})
	if out.Status == Finished {
		out.Err = rep.Err()
	}
	return out
}

// ExportSelected exports every selected mesh object to its own file.
func (o *Operators) ExportSelected(ctx context.Context, s export.Settings) Outcome {
	return o.exportBatch("export_selected", func() (export.Report, error) {
		return o.Export.ExportSelected(ctx, s)
	})
}

// BatchExport exports every mesh object in the scene to its own file.
func (o *Operators) BatchExport(ctx context.Context, s export.Settings) Outcome {
	return o.exportBatch("batch_export", func() (export.Report, error) {
		return o.Export.BatchExport(ctx, s)
	})
}

// BakeOne bakes the configured pass, or all passes, on the active object.
func (o *Operators) BakeOne(ctx context.Context, s bake.Settings) Outcome {
	var rep bake.Report
	out := o.run("bake", func() (string, error) {
		var err error
		rep, err = o.Bake.BakeOne(ctx, o.doc.Active(), s)
		if err != nil {
			return "", err
		}
		return rep.Summary(), nil
	})
	if out.Status == Finished {
		out.Err = rep.Err()
	}
	return out
}

// CreateConvexHull adds a convex hull object for the active mesh.
func (o *Operators) CreateConvexHull() Outcome {
	return o.run("create_convex_hull", func() (string, error) {
		obj, err := o.Cleanup.CreateConvexHull()
		if err != nil {
			return "", err
		}
		return "Created " + obj.Name, nil
	})
}

// Triangulate triangulates the active mesh.
func (o *Operators) Triangulate() Outcome {
	return o.run("triangulate", func() (string, error) {
		return "Mesh triangulated", o.Cleanup.Triangulate()
	})
}

// CorrectNormals makes the active mesh's normals point outward.
func (o *Operators) CorrectNormals() Outcome {
	return o.run("correct_normals", func() (string, error) {
		return "Normals corrected", o.Cleanup.CorrectNormals()
	})
}

// MergeVertices welds close vertices of the active mesh.
func (o *Operators) MergeVertices(distance float64) Outcome {
	return o.run("merge_vertices", func() (string, error) {
		n, err := o.Cleanup.MergeVertices(distance)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %d vertices", n), nil
	})
}

// ApplyTransforms bakes the transforms of the selected meshes.
func (o *Operators) ApplyTransforms() Outcome {
	return o.run("apply_transforms", func() (string, error) {
		return "Transforms applied", o.Cleanup.ApplyTransforms()
	})
}
