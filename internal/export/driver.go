package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/scene"
)

// Driver runs export passes against a scene document.
type Driver struct {
	doc     *scene.Document
	kernel  kernel.Kernel
	writers map[Format]Writer
	log     *zap.Logger

	// OnProgress, if set, receives the completed fraction after each object.
	OnProgress func(fraction float64)
}

// NewDriver returns a driver with the bundled FBX, GLTF and OBJ writers.
func NewDriver(doc *scene.Document, k kernel.Kernel, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Driver{
		doc:     doc,
		kernel:  k,
		writers: make(map[Format]Writer),
		log:     log.Named("export"),
	}
	d.Register(NewFBXWriter())
	d.Register(NewGLTFWriter())
	d.Register(NewOBJWriter())
	return d
}

// Register installs w for its format, replacing any previous writer.
func (d *Driver) Register(w Writer) {
	d.writers[w.Format()] = w
}

// Path returns the destination file of an object. It always lies directly
// inside the export folder.
func Path(s Settings, name string) string {
	return filepath.Join(s.Folder, FileName(name)+"."+s.Format.Ext())
}

var unsafeFileChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// FileName turns an object name into a single path element. Separators and
// characters rejected by common filesystems become underscores.
func FileName(name string) string {
	n := strings.TrimSpace(unsafeFileChars.Replace(name))
	if n == "" || n == "." || n == ".." {
		return "_"
	}
	return n
}

// ExportSelected writes one file per selected mesh object. Each object is
// exported with only itself selected; the selection is restored afterwards.
// An empty selection writes nothing and is not an error.
func (d *Driver) ExportSelected(ctx context.Context, s Settings) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}
	var targets []*scene.Object
	for _, obj := range d.doc.Selected() {
		if obj.IsMesh() {
			targets = append(targets, obj)
		}
	}
	return d.run(ctx, s, targets, "export selected")
}

// BatchExport writes one file per mesh object in the scene, isolating each
// in turn. The selection present before the batch is restored on every exit
// path, even when every export fails.
func (d *Driver) BatchExport(ctx context.Context, s Settings) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}
	return d.run(ctx, s, d.doc.MeshObjects(), "batch export")
}

func (d *Driver) run(ctx context.Context, s Settings, targets []*scene.Object, op string) (Report, error) {
	var rep Report
	if len(targets) == 0 {
		d.log.Info(op+": nothing to export", zap.String("format", string(s.Format)))
		return rep, nil
	}

	if err := os.MkdirAll(s.Folder, 0755); err != nil {
		return rep, fault.Host("create export folder", err)
	}

	scope := d.doc.BeginScope()
	defer scope.End()

	for i, obj := range targets {
		if err := ctx.Err(); err != nil {
			d.log.Warn(op+" interrupted", zap.Int("remaining", len(targets)-i))
			return rep, err
		}

		if s.ExcludeLODs && d.doc.IsLODObject(obj.ID) {
			rep.Skipped = append(rep.Skipped, obj.Name)
			d.progress(i+1, len(targets))
			continue
		}

		scope.Isolate(obj.ID)
		path := Path(s, obj.Name)
		if err := d.exportOne(obj, path, s); err != nil {
			d.log.Warn("export failed",
				zap.String("object", obj.Name),
				zap.String("format", string(s.Format)),
				zap.Error(err))
			rep.Failed = append(rep.Failed, Failure{Object: obj.Name, Err: err})
		} else {
			d.log.Debug("exported", zap.String("object", obj.Name), zap.String("path", path))
			rep.Exported = append(rep.Exported, Result{Object: obj.Name, Path: path})
		}
		d.progress(i+1, len(targets))
	}

	d.log.Info(op+" finished",
		zap.String("format", string(s.Format)),
		zap.Int("exported", len(rep.Exported)),
		zap.Int("failed", len(rep.Failed)),
		zap.Int("skipped", len(rep.Skipped)))
	return rep, nil
}

// exportOne writes a single object. Modifiers are committed into a copy of
// the mesh first, so the writer is told not to apply them again. Panics from
// the writer are turned into errors.
func (d *Driver) exportOne(obj *scene.Object, path string, s Settings) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Host(fmt.Sprintf("export %s", obj.Name), fmt.Errorf("writer panic: %v", r))
		}
	}()

	w, ok := d.writers[s.Format]
	if !ok {
		return fault.Host(fmt.Sprintf("export %s", obj.Name), fmt.Errorf("no writer for %s", s.Format))
	}

	item := Item{
		Name:      obj.Name,
		Location:  obj.Location,
		Rotation:  obj.Rotation,
		Scale:     obj.Scale,
		Mesh:      obj.Mesh,
		Modifiers: obj.Modifiers,
	}
	if s.ApplyModifiers {
		evaluated, err := kernel.Evaluate(d.kernel, obj.Mesh, obj.Modifiers)
		if err != nil {
			return fault.Host(fmt.Sprintf("apply modifiers on %s", obj.Name), err)
		}
		item.Mesh = evaluated
		item.Modifiers = nil
	}

	if err := writeFile(path, func(f *os.File) error {
		return w.Encode(f, []Item{item}, Options{ApplyModifiers: false})
	}); err != nil {
		return fault.Host(fmt.Sprintf("export %s %s", s.Format, obj.Name), err)
	}
	return nil
}

func (d *Driver) progress(done, total int) {
	if d.OnProgress != nil && total > 0 {
		d.OnProgress(float64(done) / float64(total))
	}
}

// writeFile writes through a temporary file in the destination folder and
// renames it into place, so a failed write never leaves a partial file.
func writeFile(path string, encode func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := encode(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
