// Package export writes scene objects to FBX, GLTF and OBJ files, one file
// per object, either for the current selection or for every mesh object in
// the scene.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Format is an export file format.
type Format string

const (
	FormatFBX  Format = "FBX"
	FormatGLTF Format = "GLTF"
	FormatOBJ  Format = "OBJ"
)

// Formats lists the supported formats.
var Formats = []Format{FormatFBX, FormatGLTF, FormatOBJ}

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid export settings")

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidSettings, s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	return strings.ToLower(string(f))
}

// Settings configure one export pass.
type Settings struct {
	Format         Format
	Folder         string
	ApplyModifiers bool
	// ExcludeLODs skips objects that are LOD objects of some base object.
	ExcludeLODs bool
}

// Validate checks the format and folder.
func (s Settings) Validate() error {
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	if strings.TrimSpace(s.Folder) == "" {
		return fmt.Errorf("%w: destination folder is empty", ErrInvalidSettings)
	}
	return nil
}

// Item is one object as handed to a writer. When modifiers were committed
// before writing, Modifiers is empty and Mesh is the evaluated geometry.
type Item struct {
	Name      string
	Location  [3]float32
	Rotation  [3]float32
	Scale     [3]float32
	Mesh      *mesh.Mesh
	Modifiers []scene.Modifier
}

// Options are passed to a writer.
type Options struct {
	// ApplyModifiers asks the writer to evaluate Item.Modifiers itself.
	ApplyModifiers bool
}

// Writer encodes items in one file format.
type Writer interface {
	Format() Format
	Encode(w io.Writer, items []Item, opts Options) error
}

// ErrWriterModifiers is returned by the bundled writers when asked to
// evaluate modifiers; the driver commits them before calling the writer.
var ErrWriterModifiers = errors.New("writer cannot evaluate modifiers")

func checkItems(items []Item, opts Options) error {
	for _, it := range items {
		if it.Mesh == nil {
			return fmt.Errorf("object %q has no mesh", it.Name)
		}
		if opts.ApplyModifiers && len(it.Modifiers) > 0 {
			return fmt.Errorf("object %q: %w", it.Name, ErrWriterModifiers)
		}
	}
	return nil
}

// Result records one written file.
type Result struct {
	Object string
	Path   string
}

// Failure records one object that could not be exported.
type Failure struct {
	Object string
	Err    error
}

// Report is the outcome of an export pass.
type Report struct {
	Exported []Result
	Failed   []Failure
	Skipped  []string
}

// Err joins the per-object failures, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Object, f.Err))
	}
	return errors.Join(errs...)
}

// Summary is a one-line human-readable tally.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exported %d, failed %d", len(r.Exported), len(r.Failed))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, ", skipped %d", len(r.Skipped))
	}
	if len(r.Failed) > 0 {
		names := make([]string, len(r.Failed))
		for i, f := range r.Failed {
			names[i] = f.Object
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
	}
	return b.String()
}
