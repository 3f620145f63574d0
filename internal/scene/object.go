// Package scene is the in-memory host document: the object set, selection
// and active object, per-object modifier stacks and LOD links, and the
// images owned by the document.
package scene

import (
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// ObjectType is the kind of data an object carries.
type ObjectType string

const (
	TypeMesh   ObjectType = "MESH"
	TypeEmpty  ObjectType = "EMPTY"
	TypeCamera ObjectType = "CAMERA"
	TypeLight  ObjectType = "LIGHT"
)

// ModifierKind identifies a modifier's operation.
type ModifierKind string

const (
	ModDecimate    ModifierKind = "DECIMATE"
	ModTriangulate ModifierKind = "TRIANGULATE"
	ModWeld        ModifierKind = "WELD"
)

// Modifier is one non-destructive step in an object's modifier stack.
// Ratio is used by DECIMATE, Distance by WELD.
type Modifier struct {
	Name     string       `yaml:"name"`
	Kind     ModifierKind `yaml:"kind"`
	Ratio    float64      `yaml:"ratio,omitempty"`
	Distance float64      `yaml:"distance,omitempty"`
}

// LodLink is one slot in a base object's LOD list. It refers to the LOD
// object by ID only; the object may have been deleted since.
type LodLink struct {
	ObjectID string `yaml:"object_id"`
}

// Object is a scene object.
type Object struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Type      ObjectType         `yaml:"type"`
	Location  [3]float32         `yaml:"location"`
	Rotation  [3]float32         `yaml:"rotation"`
	Scale     [3]float32         `yaml:"scale"`
	Mesh      *mesh.Mesh         `yaml:"mesh,omitempty"`
	Modifiers []Modifier         `yaml:"modifiers,omitempty"`
	LODs      []LodLink          `yaml:"lods,omitempty"`
	Props     map[string]float64 `yaml:"props,omitempty"`
}

// NewMeshObject returns an object carrying m with an identity transform.
func NewMeshObject(name string, m *mesh.Mesh) *Object {
	return &Object{
		Name:  name,
		Type:  TypeMesh,
		Scale: [3]float32{1, 1, 1},
		Mesh:  m,
	}
}

// IsMesh reports whether the object carries mesh data.
func (o *Object) IsMesh() bool {
	return o != nil && o.Type == TypeMesh && o.Mesh != nil
}

// ModifierNamed returns the modifier with the given name, or nil.
func (o *Object) ModifierNamed(name string) *Modifier {
	for i := range o.Modifiers {
		if o.Modifiers[i].Name == name {
			return &o.Modifiers[i]
		}
	}
	return nil
}

// AddModifier appends m to the stack and returns a pointer to it.
func (o *Object) AddModifier(m Modifier) *Modifier {
	o.Modifiers = append(o.Modifiers, m)
	return &o.Modifiers[len(o.Modifiers)-1]
}

// RemoveModifier drops the first modifier with the given name and reports
// whether one was found.
func (o *Object) RemoveModifier(name string) bool {
	for i := range o.Modifiers {
		if o.Modifiers[i].Name == name {
			o.Modifiers = append(o.Modifiers[:i], o.Modifiers[i+1:]...)
			return true
		}
	}
	return false
}

// SetProp records a custom numeric property.
func (o *Object) SetProp(key string, v float64) {
	if o.Props == nil {
		o.Props = make(map[string]float64)
	}
	o.Props[key] = v
}
