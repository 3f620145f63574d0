package export

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/qmuntal/gltf"

	kmath "github.com/Faultbox/meshkit/pkg/math"
)

const gltfVersion = "2.0"

// GLTFWriter writes glTF 2.0 JSON with the geometry buffer embedded as a
// data URI, so each file is self-contained.
type GLTFWriter struct{}

// NewGLTFWriter returns the glTF writer.
func NewGLTFWriter() *GLTFWriter { return &GLTFWriter{} }

// Format implements Writer.
func (*GLTFWriter) Format() Format { return FormatGLTF }

// Encode implements Writer.
func (*GLTFWriter) Encode(w io.Writer, items []Item, opts Options) error {
	if err := checkItems(items, opts); err != nil {
		return err
	}
	doc := BuildGLTF(items)
	enc := gltf.NewEncoder(w)
	enc.AsBinary = false
	return enc.Encode(doc)
}

// BuildGLTF assembles a glTF document with one node and one mesh per item.
func BuildGLTF(items []Item) *gltf.Document {
	sceneIndex := uint32(0)
	doc := &gltf.Document{
		Asset:   gltf.Asset{Version: gltfVersion, Generator: "meshkit"},
		Scene:   &sceneIndex,
		Scenes:  []*gltf.Scene{{}},
		Buffers: []*gltf.Buffer{{}},
	}

	var data bytes.Buffer
	for _, it := range items {
		meshIndex := uint32(len(doc.Meshes))
		prim := &gltf.Primitive{
			Mode:       gltf.PrimitiveTriangles,
			Attributes: gltf.Attribute{},
		}

		m := it.Mesh
		if len(m.Positions) > 0 {
			b := m.Bounds()
			acc := &gltf.Accessor{
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorVec3,
				Count:         uint32(len(m.Positions)),
				BufferView:    writeView(doc, &data, m.Positions, gltf.TargetArrayBuffer),
				Min:           []float32{b.Min[0], b.Min[1], b.Min[2]},
				Max:           []float32{b.Max[0], b.Max[1], b.Max[2]},
			}
			prim.Attributes["POSITION"] = addAccessor(doc, acc)
		}
		if len(m.Normals) == len(m.Positions) && len(m.Normals) > 0 {
			acc := &gltf.Accessor{
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorVec3,
				Count:         uint32(len(m.Normals)),
				BufferView:    writeView(doc, &data, m.Normals, gltf.TargetArrayBuffer),
			}
			prim.Attributes["NORMAL"] = addAccessor(doc, acc)
		}
		if len(m.UVs) == len(m.Positions) && len(m.UVs) > 0 {
			acc := &gltf.Accessor{
				ComponentType: gltf.ComponentFloat,
				Type:          gltf.AccessorVec2,
				Count:         uint32(len(m.UVs)),
				BufferView:    writeView(doc, &data, m.UVs, gltf.TargetArrayBuffer),
			}
			prim.Attributes["TEXCOORD_0"] = addAccessor(doc, acc)
		}
		if tris := m.Triangles(); len(tris) > 0 {
			acc := &gltf.Accessor{
				ComponentType: gltf.ComponentUint,
				Type:          gltf.AccessorScalar,
				Count:         uint32(len(tris)),
				BufferView:    writeView(doc, &data, tris, gltf.TargetElementArrayBuffer),
			}
			idx := addAccessor(doc, acc)
			prim.Indices = &idx
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: it.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        it.Name,
			Mesh:        &meshIndex,
			Translation: it.Location,
			Rotation:    kmath.EulerToQuat(it.Rotation),
			Scale:       it.Scale,
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}

	buf := doc.Buffers[0]
	buf.ByteLength = uint32(data.Len())
	buf.Data = data.Bytes()
	buf.EmbeddedResource()
	return doc
}

// writeView appends v to data, padded to four bytes, and registers a buffer
// view for it.
func writeView(doc *gltf.Document, data *bytes.Buffer, v any, target gltf.Target) *uint32 {
	for data.Len()%4 != 0 {
		data.WriteByte(0)
	}
	offset := data.Len()
	binary.Write(data, binary.LittleEndian, v)

	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(offset),
		ByteLength: uint32(data.Len() - offset),
		Target:     target,
	}
	doc.BufferViews = append(doc.BufferViews, view)
	idx := uint32(len(doc.BufferViews) - 1)
	return &idx
}

func addAccessor(doc *gltf.Document, acc *gltf.Accessor) uint32 {
	doc.Accessors = append(doc.Accessors, acc)
	return uint32(len(doc.Accessors) - 1)
}
