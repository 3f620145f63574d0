package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// docFile is the on-disk layout of a scene document.
type docFile struct {
	UnitScale float64   `yaml:"unit_scale"`
	Objects   []*Object `yaml:"objects"`
	Selected  []string  `yaml:"selected,omitempty"`
	Active    string    `yaml:"active,omitempty"`
	Images    []*Image  `yaml:"images,omitempty"`
}

// Pack embeds the image pixels as PNG so they survive a document save.
func (img *Image) Pack() error {
	if img.Pixels == nil {
		return fmt.Errorf("image %q has no pixels", img.Name)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Pixels); err != nil {
		return fmt.Errorf("packing image %q: %w", img.Name, err)
	}
	img.Data = buf.Bytes()
	img.Packed = true
	return nil
}

func (img *Image) unpack() error {
	if len(img.Data) == 0 {
		img.Pixels = image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		return nil
	}
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("unpacking image %q: %w", img.Name, err)
	}
	rgba := image.NewRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	img.Pixels = rgba
	return nil
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	snap := d.Snapshot()
	f := docFile{
		UnitScale: d.UnitScale,
		Objects:   d.objects,
		Selected:  snap.IDs,
		Active:    snap.Active,
		Images:    d.images,
	}
	for _, img := range d.images {
		if img.Packed && img.Pixels != nil {
			if err := img.Pack(); err != nil {
				return nil, err
			}
		}
	}
	return yaml.Marshal(&f)
}

// Unmarshal decodes a YAML document.
func Unmarshal(data []byte) (*Document, error) {
	var f docFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	d := New()
	if f.UnitScale > 0 {
		d.UnitScale = f.UnitScale
	}
	for i, obj := range f.Objects {
		if obj == nil {
			continue
		}
		if obj.Mesh != nil {
			if err := obj.Mesh.Validate(); err != nil {
				return nil, fmt.Errorf("object %d (%s): %w", i, obj.Name, err)
			}
		}
		if _, dup := d.byID[obj.ID]; dup && obj.ID != "" {
			return nil, fmt.Errorf("object %d (%s): duplicate id %s", i, obj.Name, obj.ID)
		}
		d.Add(obj)
	}
	for _, img := range f.Images {
		if err := img.unpack(); err != nil {
			return nil, err
		}
		d.images = append(d.images, img)
	}
	d.Restore(Selection{IDs: f.Selected, Active: f.Active})
	return d, nil
}

// Load reads a document from a YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing scene %s: %w", path, err)
	}
	return d, nil
}

// Save writes the document to a YAML file.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
