package bake

import (
	"errors"
	"image"
	"image/color"

	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// Pass is one bake request handed to an Engine.
type Pass struct {
	Object   *scene.Object
	Material *mesh.Material
	Type     Type
	Flags    Flags
}

// Engine renders a pass into the target image.
type Engine interface {
	Bake(p Pass, target *image.RGBA) error
}

// ErrNoGeometry is returned by the reference engine for meshes without faces.
var ErrNoGeometry = errors.New("mesh has no faces to bake")

// ReferenceEngine fills the target with a flat colour derived from the
// material and the pass. Position and UV passes write gradients so the
// output varies across the image.
type ReferenceEngine struct{}

// Bake implements Engine.
func (ReferenceEngine) Bake(p Pass, target *image.RGBA) error {
	if p.Object == nil || p.Object.Mesh.IsEmpty() {
		return ErrNoGeometry
	}
	b := target.Bounds()
	w, h := b.Dx(), b.Dy()

	switch p.Type {
	case Position, UV:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				target.SetRGBA(b.Min.X+x, b.Min.Y+y, color.RGBA{
					R: uint8(x * 255 / max(w-1, 1)),
					G: uint8(y * 255 / max(h-1, 1)),
					A: 255,
				})
			}
		}
		return nil
	}

	c := flatColor(p)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			target.SetRGBA(x, y, c)
		}
	}
	return nil
}

func flatColor(p Pass) color.RGBA {
	m := p.Material
	switch p.Type {
	case Diffuse, Combined:
		c := unit(m.BaseColor[0], m.BaseColor[1], m.BaseColor[2])
		if p.Type == Combined && !p.Flags.Direct {
			c = color.RGBA{A: 255}
		}
		return c
	case Normal:
		return color.RGBA{R: 128, G: 128, B: 255, A: 255}
	case Roughness:
		return unit(m.Roughness, m.Roughness, m.Roughness)
	case Emit:
		return unit(m.Emission[0], m.Emission[1], m.Emission[2])
	case AO, Environment:
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	case Shadow, Transmission:
		return color.RGBA{A: 255}
	}
	return color.RGBA{A: 255}
}

func unit(r, g, b float32) color.RGBA {
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
