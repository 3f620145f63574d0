package scene

import (
	"image"
	"slices"

	"github.com/google/uuid"
)

// Image is a bake target owned by the document. Packed images keep their
// pixels embedded in the document when it is saved.
type Image struct {
	Name     string      `yaml:"name"`
	Width    int         `yaml:"width"`
	Height   int         `yaml:"height"`
	FilePath string      `yaml:"file_path,omitempty"`
	Packed   bool        `yaml:"packed,omitempty"`
	Data     []byte      `yaml:"data,omitempty"`
	Pixels   *image.RGBA `yaml:"-"`
}

// Document is the object set of one scene plus its selection state.
type Document struct {
	objects  []*Object
	byID     map[string]*Object
	selected map[string]bool
	active   string
	images   []*Image

	// UnitScale is the scene's length unit in metres.
	UnitScale float64
}

// New creates an empty document.
func New() *Document {
	return &Document{
		byID:      make(map[string]*Object),
		selected:  make(map[string]bool),
		UnitScale: 1,
	}
}

// Add links obj into the document, assigning an ID if it has none, and
// returns it.
func (d *Document) Add(obj *Object) *Object {
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	if obj.Scale == ([3]float32{}) {
		obj.Scale = [3]float32{1, 1, 1}
	}
	d.objects = append(d.objects, obj)
	d.byID[obj.ID] = obj
	return obj
}

// Remove unlinks and deletes the object. It reports whether the object
// existed. LOD links that pointed at it become stale.
func (d *Document) Remove(id string) bool {
	if _, ok := d.byID[id]; !ok {
		return false
	}
	delete(d.byID, id)
	delete(d.selected, id)
	if d.active == id {
		d.active = ""
	}
	d.objects = slices.DeleteFunc(d.objects, func(o *Object) bool { return o.ID == id })
	return true
}

// Lookup resolves an object by ID. A deleted object is reported as absent.
func (d *Document) Lookup(id string) (*Object, bool) {
	obj, ok := d.byID[id]
	return obj, ok
}

// FindByName returns the first object with the given name.
func (d *Document) FindByName(name string) (*Object, bool) {
	for _, o := range d.objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Objects returns all objects in insertion order.
func (d *Document) Objects() []*Object {
	return slices.Clone(d.objects)
}

// MeshObjects returns the mesh objects in insertion order.
func (d *Document) MeshObjects() []*Object {
	var out []*Object
	for _, o := range d.objects {
		if o.IsMesh() {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of objects.
func (d *Document) Len() int {
	return len(d.objects)
}

// Selected returns the selected objects in scene order.
func (d *Document) Selected() []*Object {
	var out []*Object
	for _, o := range d.objects {
		if d.selected[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

// IsSelected reports whether the object is selected.
func (d *Document) IsSelected(id string) bool {
	return d.selected[id]
}

// Select sets the selection state of one object. Unknown IDs are ignored.
func (d *Document) Select(id string, on bool) {
	if _, ok := d.byID[id]; !ok {
		return
	}
	if on {
		d.selected[id] = true
	} else {
		delete(d.selected, id)
	}
}

// DeselectAll clears the selection. The active object is kept.
func (d *Document) DeselectAll() {
	clear(d.selected)
}

// Active returns the active object, or nil.
func (d *Document) Active() *Object {
	if d.active == "" {
		return nil
	}
	return d.byID[d.active]
}

// SetActive makes the object active. An empty or unknown ID clears it.
func (d *Document) SetActive(id string) {
	if _, ok := d.byID[id]; !ok {
		d.active = ""
		return
	}
	d.active = id
}

// SelectOnly makes the object the sole selected and active object.
func (d *Document) SelectOnly(id string) {
	d.DeselectAll()
	d.Select(id, true)
	d.SetActive(id)
}

// BlankImage returns an image of the given size that no document owns yet.
func BlankImage(name string, width, height int) *Image {
	return &Image{
		Name:   name,
		Width:  width,
		Height: height,
		Pixels: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewImage creates a document-owned image of the given size, replacing any
// image with the same name.
func (d *Document) NewImage(name string, width, height int) *Image {
	img := BlankImage(name, width, height)
	d.PutImage(img)
	return img
}

// PutImage hands img to the document. An existing image with the same name
// is replaced in place.
func (d *Document) PutImage(img *Image) {
	for i, old := range d.images {
		if old.Name == img.Name {
			d.images[i] = img
			return
		}
	}
	d.images = append(d.images, img)
}

// Image returns the first image with the given name.
func (d *Document) Image(name string) (*Image, bool) {
	for _, img := range d.images {
		if img.Name == name {
			return img, true
		}
	}
	return nil, false
}

// Images returns all document images.
func (d *Document) Images() []*Image {
	return slices.Clone(d.images)
}

// RemoveImage deletes an image by name.
func (d *Document) RemoveImage(name string) bool {
	n := len(d.images)
	d.images = slices.DeleteFunc(d.images, func(img *Image) bool { return img.Name == name })
	return len(d.images) != n
}
