package export

import (
	"bufio"
	"fmt"
	"io"
	gomath "math"
	"strings"
)

// FBXWriter writes ASCII FBX 7.4 with one Model and one Geometry per item.
type FBXWriter struct {
	// UnitScaleFactor is written to GlobalSettings, in centimetres per unit.
	UnitScaleFactor float64
}

// NewFBXWriter returns an FBX writer for metre-based scenes.
func NewFBXWriter() *FBXWriter {
	return &FBXWriter{UnitScaleFactor: 100}
}

// Format implements Writer.
func (*FBXWriter) Format() Format { return FormatFBX }

// Encode implements Writer.
func (fw *FBXWriter) Encode(w io.Writer, items []Item, opts Options) error {
	if err := checkItems(items, opts); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	p := func(indent int, format string, args ...any) {
		bw.WriteString(strings.Repeat("\t", indent))
		fmt.Fprintf(bw, format, args...)
		bw.WriteByte('\n')
	}

	p(0, "; FBX 7.4.0 project file")
	p(0, "; Created by meshkit")
	p(0, "")
	p(0, "FBXHeaderExtension:  {")
	p(1, "FBXHeaderVersion: 1003")
	p(1, "FBXVersion: 7400")
	p(1, "Creator: \"meshkit\"")
	p(0, "}")
	p(0, "GlobalSettings:  {")
	p(1, "Version: 1000")
	p(1, "Properties70:  {")
	p(2, "P: \"UpAxis\", \"int\", \"Integer\", \"\",2")
	p(2, "P: \"FrontAxis\", \"int\", \"Integer\", \"\",1")
	p(2, "P: \"UnitScaleFactor\", \"double\", \"Number\", \"\",%s", ftoa64(fw.UnitScaleFactor))
	p(1, "}")
	p(0, "}")

	p(0, "Definitions:  {")
	p(1, "Version: 100")
	p(1, "Count: %d", len(items)*2)
	p(1, "ObjectType: \"Model\" {")
	p(2, "Count: %d", len(items))
	p(1, "}")
	p(1, "ObjectType: \"Geometry\" {")
	p(2, "Count: %d", len(items))
	p(1, "}")
	p(0, "}")

	p(0, "Objects:  {")
	for i, it := range items {
		geomID, modelID := fbxIDs(i)
		m := it.Mesh

		p(1, "Geometry: %d, \"Geometry::%s\", \"Mesh\" {", geomID, fbxName(it.Name))
		coords := make([]string, 0, len(m.Positions)*3)
		for _, v := range m.Positions {
			coords = append(coords, ftoa(v[0]), ftoa(v[1]), ftoa(v[2]))
		}
		p(2, "Vertices: *%d {", len(coords))
		p(3, "a: %s", strings.Join(coords, ","))
		p(2, "}")

		// The last index of each polygon is stored as -(index+1).
		var indices []string
		for _, f := range m.Faces {
			for k, idx := range f {
				v := int64(idx)
				if k == len(f)-1 {
					v = -v - 1
				}
				indices = append(indices, fmt.Sprint(v))
			}
		}
		p(2, "PolygonVertexIndex: *%d {", len(indices))
		p(3, "a: %s", strings.Join(indices, ","))
		p(2, "}")
		p(2, "GeometryVersion: 124")

		if len(m.Normals) == len(m.Positions) && len(m.Normals) > 0 {
			ns := make([]string, 0, len(m.Normals)*3)
			for _, n := range m.Normals {
				ns = append(ns, ftoa(n[0]), ftoa(n[1]), ftoa(n[2]))
			}
			p(2, "LayerElementNormal: 0 {")
			p(3, "Version: 101")
			p(3, "Name: \"\"")
			p(3, "MappingInformationType: \"ByVertice\"")
			p(3, "ReferenceInformationType: \"Direct\"")
			p(3, "Normals: *%d {", len(ns))
			p(4, "a: %s", strings.Join(ns, ","))
			p(3, "}")
			p(2, "}")
			p(2, "Layer: 0 {")
			p(3, "Version: 100")
			p(3, "LayerElement:  {")
			p(4, "Type: \"LayerElementNormal\"")
			p(4, "TypedIndex: 0")
			p(3, "}")
			p(2, "}")
		}
		p(1, "}")

		p(1, "Model: %d, \"Model::%s\", \"Mesh\" {", modelID, fbxName(it.Name))
		p(2, "Version: 232")
		p(2, "Properties70:  {")
		p(3, "P: \"Lcl Translation\", \"Lcl Translation\", \"\", \"A\",%s", vec3(it.Location, 1))
		p(3, "P: \"Lcl Rotation\", \"Lcl Rotation\", \"\", \"A\",%s", vec3(it.Rotation, 180/gomath.Pi))
		p(3, "P: \"Lcl Scaling\", \"Lcl Scaling\", \"\", \"A\",%s", vec3(it.Scale, 1))
		p(2, "}")
		p(2, "Shading: T")
		p(2, "Culling: \"CullingOff\"")
		p(1, "}")
	}
	p(0, "}")

	p(0, "Connections:  {")
	for i := range items {
		geomID, modelID := fbxIDs(i)
		p(1, "C: \"OO\",%d,0", modelID)
		p(1, "C: \"OO\",%d,%d", geomID, modelID)
	}
	p(0, "}")

	return bw.Flush()
}

func fbxIDs(i int) (geom, model int64) {
	base := int64(1000000 + i*2)
	return base, base + 1
}

// fbxName strips characters that would break the quoted name field.
func fbxName(s string) string {
	return strings.NewReplacer("\"", "", "\n", " ", "\x00", "").Replace(s)
}

func vec3(v [3]float32, scale float64) string {
	return fmt.Sprintf("%s,%s,%s",
		ftoa64(float64(v[0])*scale), ftoa64(float64(v[1])*scale), ftoa64(float64(v[2])*scale))
}

func ftoa64(f float64) string {
	return fmt.Sprint(f)
}
