package bake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Baked records one pass that produced an image.
type Baked struct {
	Type  Type
	Image string
	// Path is empty when saving was not requested.
	Path string
}

// Failure records one pass that failed, either while baking or saving.
type Failure struct {
	Type Type
	Err  error
}

// Report is the outcome of a bake.
type Report struct {
	Baked  []Baked
	Failed []Failure
}

// Err joins the per-pass failures, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Type, f.Err))
	}
	return errors.Join(errs...)
}

// Summary is a one-line human-readable tally.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "baked %d, failed %d", len(r.Baked), len(r.Failed))
	if len(r.Failed) > 0 {
		names := make([]string, len(r.Failed))
		for i, f := range r.Failed {
			names[i] = string(f.Type)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
	}
	return b.String()
}

// Driver bakes passes into document images.
type Driver struct {
	doc    *scene.Document
	engine Engine
	log    *zap.Logger

	// OnProgress, if set, receives the completed fraction after each pass.
	// The values increase strictly and the last one is exactly 1.
	OnProgress func(fraction float64)
}

// NewDriver returns a bake driver using engine.
func NewDriver(doc *scene.Document, engine Engine, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{doc: doc, engine: engine, log: log.Named("bake")}
}

// MaterialName is the material created for objects that have none.
func MaterialName(obj *scene.Object) string {
	return obj.Name + "_Material"
}

// ImageName is the image a pass bakes into.
func ImageName(obj *scene.Object, t Type) string {
	return obj.Name + "_" + t.Slug() + "_bake"
}

// BakeOne bakes the configured pass, or every pass for All, on obj.
//
// With a single pass, a bake failure is returned as the error. With All, a
// failing pass is recorded in the report and the remaining passes still run.
// Successfully baked images are always packed into the document; a failed
// save is recorded as a failure of that pass without discarding the image.
func (d *Driver) BakeOne(ctx context.Context, obj *scene.Object, s Settings) (Report, error) {
	var rep Report
	if !obj.IsMesh() || obj.Mesh == nil {
		return rep, fault.InvalidTarget("bake needs a mesh object")
	}
	if err := s.Validate(); err != nil {
		return rep, err
	}

	passes := s.Type.Expand()
	mat := ensureMaterial(obj)

	for i, t := range passes {
		if err := ctx.Err(); err != nil {
			d.log.Warn("bake interrupted", zap.Int("remaining", len(passes)-i))
			return rep, err
		}

		b, err := d.bakePass(obj, mat, t, s)
		if err != nil {
			d.log.Warn("bake pass failed",
				zap.String("object", obj.Name),
				zap.String("pass", string(t)),
				zap.Error(err))
			rep.Failed = append(rep.Failed, Failure{Type: t, Err: err})
		}
		if b != nil {
			rep.Baked = append(rep.Baked, *b)
			d.log.Debug("baked", zap.String("image", b.Image), zap.String("path", b.Path))
		}
		d.progress(i+1, len(passes))
	}

	d.log.Info("bake finished",
		zap.String("object", obj.Name),
		zap.String("type", string(s.Type)),
		zap.Int("baked", len(rep.Baked)),
		zap.Int("failed", len(rep.Failed)))

	if s.Type != All && len(rep.Failed) > 0 {
		return rep, rep.Failed[0].Err
	}
	return rep, nil
}

// bakePass runs one pass. It returns a non-nil Baked whenever an image was
// kept, even if the save afterwards failed. The pass renders into a fresh
// image; an earlier bake of the same pass is replaced only on success.
func (d *Driver) bakePass(obj *scene.Object, mat *mesh.Material, t Type, s Settings) (*Baked, error) {
	name := ImageName(obj, t)
	img := scene.BlankImage(name, s.Resolution, s.Resolution)

	mat.Images = append(mat.Images, name)
	mat.ActiveImage = name
	defer detach(mat, name)

	if err := d.bakeSafe(Pass{Object: obj, Material: mat, Type: t, Flags: t.Flags()}, img); err != nil {
		return nil, fault.Host(fmt.Sprintf("bake %s", t), err)
	}
	d.doc.PutImage(img)

	b := &Baked{Type: t, Image: name}
	var saveErr error
	if s.Path != "" {
		path := PassPath(s.Path, t, s.Format)
		if err := SaveImage(path, img.Pixels, s.Format); err != nil {
			saveErr = fault.Host(fmt.Sprintf("save %s", path), err)
		} else {
			b.Path = path
			img.FilePath = path
		}
	}
	if err := img.Pack(); err != nil {
		return b, errors.Join(saveErr, fault.Host("pack "+name, err))
	}
	return b, saveErr
}

func (d *Driver) bakeSafe(p Pass, img *scene.Image) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return d.engine.Bake(p, img.Pixels)
}

func (d *Driver) progress(done, total int) {
	if d.OnProgress != nil && total > 0 {
		d.OnProgress(float64(done) / float64(total))
	}
}

// ensureMaterial returns the object's first material, creating one when the
// mesh has none.
func ensureMaterial(obj *scene.Object) *mesh.Material {
	if len(obj.Mesh.Materials) == 0 {
		obj.Mesh.Materials = append(obj.Mesh.Materials, mesh.Material{
			Name:      MaterialName(obj),
			BaseColor: [4]float32{0.8, 0.8, 0.8, 1},
			Roughness: 0.5,
		})
	}
	return &obj.Mesh.Materials[0]
}

// detach removes the bake target node from the material. The image itself
// stays in the document.
func detach(mat *mesh.Material, name string) {
	for i, n := range mat.Images {
		if n == name {
			mat.Images = append(mat.Images[:i], mat.Images[i+1:]...)
			break
		}
	}
	if mat.ActiveImage == name {
		mat.ActiveImage = ""
	}
}
