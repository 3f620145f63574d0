package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	kmath "github.com/Faultbox/meshkit/pkg/math"
)

// OBJWriter writes Wavefront OBJ text with world-space coordinates. No
// material library is written.
type OBJWriter struct{}

// NewOBJWriter returns the OBJ writer.
func NewOBJWriter() *OBJWriter { return &OBJWriter{} }

// Format implements Writer.
func (*OBJWriter) Format() Format { return FormatOBJ }

// Encode implements Writer.
func (*OBJWriter) Encode(w io.Writer, items []Item, opts Options) error {
	if err := checkItems(items, opts); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# meshkit OBJ export")

	// OBJ indices are 1-based and global across objects.
	var vBase, nBase, tBase int
	for _, it := range items {
		m := it.Mesh
		world := kmath.Compose(it.Location, it.Rotation, it.Scale)
		normalMat := world.NormalMatrix()
		hasN := len(m.Normals) == len(m.Positions) && len(m.Normals) > 0
		hasT := len(m.UVs) == len(m.Positions) && len(m.UVs) > 0

		fmt.Fprintf(bw, "o %s\n", it.Name)
		for _, p := range m.Positions {
			wp := world.TransformPoint(p)
			fmt.Fprintf(bw, "v %s %s %s\n", ftoa(wp[0]), ftoa(wp[1]), ftoa(wp[2]))
		}
		if hasT {
			for _, uv := range m.UVs {
				fmt.Fprintf(bw, "vt %s %s\n", ftoa(uv[0]), ftoa(uv[1]))
			}
		}
		if hasN {
			for _, n := range m.Normals {
				wn := kmath.V(normalMat.TransformDirection(n)).Normalize()
				fmt.Fprintf(bw, "vn %s %s %s\n", ftoa(wn.X), ftoa(wn.Y), ftoa(wn.Z))
			}
		}
		for _, f := range m.Faces {
			bw.WriteString("f")
			for _, idx := range f {
				i := int(idx)
				switch {
				case hasT && hasN:
					fmt.Fprintf(bw, " %d/%d/%d", vBase+i+1, tBase+i+1, nBase+i+1)
				case hasN:
					fmt.Fprintf(bw, " %d//%d", vBase+i+1, nBase+i+1)
				case hasT:
					fmt.Fprintf(bw, " %d/%d", vBase+i+1, tBase+i+1)
				default:
					fmt.Fprintf(bw, " %d", vBase+i+1)
				}
			}
			bw.WriteString("\n")
		}

		vBase += len(m.Positions)
		if hasN {
			nBase += len(m.Normals)
		}
		if hasT {
			tBase += len(m.UVs)
		}
	}
	return bw.Flush()
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}
