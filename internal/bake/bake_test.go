package bake

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

// flakyEngine fails the listed passes and delegates the rest.
type flakyEngine struct {
	fail  map[Type]bool
	seen  []Pass
	inner ReferenceEngine
}

func (e *flakyEngine) Bake(p Pass, target *image.RGBA) error {
	e.seen = append(e.seen, p)
	if e.fail[p.Type] {
		return errors.New("engine: out of samples")
	}
	return e.inner.Bake(p, target)
}

func cubeScene(t *testing.T) (*scene.Document, *scene.Object) {
	t.Helper()
	doc := scene.New()
	obj := doc.Add(scene.NewMeshObject("Cube", mesh.Cube("Cube", 1)))
	return doc, obj
}

func settings(t *testing.T, typ Type) Settings {
	return Settings{
		Type:       typ,
		Resolution: MinResolution,
		Format:     FormatPNG,
		Path:       filepath.Join(t.TempDir(), "tex", "baked.png"),
	}
}

func TestBakeAllWithOneFailingPass(t *testing.T) {
	doc, obj := cubeScene(t)
	eng := &flakyEngine{fail: map[Type]bool{Roughness: true}}
	d := NewDriver(doc, eng, nil)

	var progress []float64
	d.OnProgress = func(f float64) { progress = append(progress, f) }

	s := settings(t, All)
	rep, err := d.BakeOne(context.Background(), obj, s)
	require.NoError(t, err)

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, Roughness, rep.Failed[0].Type)
	assert.Equal(t, fault.KindHostOperationFailed, fault.KindOf(rep.Failed[0].Err))
	assert.Contains(t, rep.Failed[0].Err.Error(), "out of samples")

	require.Len(t, rep.Baked, len(Types)-1)
	for _, b := range rep.Baked {
		assert.Equal(t, PassPath(s.Path, b.Type, FormatPNG), b.Path)
		assert.FileExists(t, b.Path)
	}
	assert.Len(t, eng.seen, len(Types))

	// Progress rises strictly and reaches 1 exactly once, at the end.
	require.Len(t, progress, len(Types))
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 1.0, progress[len(progress)-1])
	assert.Less(t, progress[len(progress)-2], 1.0)

	_, ok := doc.Image("Cube_roughness_bake")
	assert.False(t, ok, "failed pass must not leave an image")
	img, ok := doc.Image("Cube_diffuse_bake")
	require.True(t, ok)
	assert.True(t, img.Packed)
	assert.NotEmpty(t, img.Data)
	assert.Equal(t, 256, img.Width)
}

func TestBakeSinglePassFailureIsReturned(t *testing.T) {
	doc, obj := cubeScene(t)
	d := NewDriver(doc, &flakyEngine{fail: map[Type]bool{AO: true}}, nil)

	rep, err := d.BakeOne(context.Background(), obj, settings(t, AO))
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrHostOperation)
	assert.Len(t, rep.Failed, 1)
	assert.Empty(t, rep.Baked)
	assert.Empty(t, doc.Images())
}

func TestBakeFlagsAndMaterial(t *testing.T) {
	doc, obj := cubeScene(t)
	eng := &flakyEngine{}
	d := NewDriver(doc, eng, nil)

	for _, typ := range []Type{Diffuse, AO, Combined, Normal} {
		_, err := d.BakeOne(context.Background(), obj, settings(t, typ))
		require.NoError(t, err)
	}

	require.Len(t, eng.seen, 4)
	assert.Equal(t, Flags{Color: true}, eng.seen[0].Flags)
	assert.Equal(t, Flags{Direct: true}, eng.seen[1].Flags)
	assert.Equal(t, Flags{Direct: true, Indirect: true, Color: true}, eng.seen[2].Flags)
	assert.Equal(t, Flags{}, eng.seen[3].Flags)

	// The material is created once and the bake target is attached only
	// while baking.
	require.Len(t, obj.Mesh.Materials, 1)
	mat := obj.Mesh.Materials[0]
	assert.Equal(t, "Cube_Material", mat.Name)
	assert.Empty(t, mat.Images)
	assert.Empty(t, mat.ActiveImage)
	assert.Equal(t, "Cube_Material", eng.seen[0].Material.Name)
}

func TestBakeUsesExistingMaterial(t *testing.T) {
	doc, obj := cubeScene(t)
	obj.Mesh.Materials = []mesh.Material{{Name: "Stone", BaseColor: [4]float32{1, 0, 0, 1}}}

	var active string
	eng := engineFunc(func(p Pass, target *image.RGBA) error {
		active = p.Material.ActiveImage
		return ReferenceEngine{}.Bake(p, target)
	})
	d := NewDriver(doc, eng, nil)

	s := settings(t, Diffuse)
	s.Path = ""
	rep, err := d.BakeOne(context.Background(), obj, s)
	require.NoError(t, err)
	require.Len(t, rep.Baked, 1)
	assert.Empty(t, rep.Baked[0].Path)
	assert.Equal(t, "Cube_diffuse_bake", active)
	assert.Len(t, obj.Mesh.Materials, 1)

	img, ok := doc.Image("Cube_diffuse_bake")
	require.True(t, ok)
	r, g, b, _ := img.Pixels.At(10, 10).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})
	assert.True(t, img.Packed)
}

type engineFunc func(p Pass, target *image.RGBA) error

func (f engineFunc) Bake(p Pass, target *image.RGBA) error { return f(p, target) }

func TestBakeRebakeReplacesImage(t *testing.T) {
	doc, obj := cubeScene(t)
	d := NewDriver(doc, ReferenceEngine{}, nil)
	s := settings(t, Normal)

	for i := 0; i < 2; i++ {
		_, err := d.BakeOne(context.Background(), obj, s)
		require.NoError(t, err)
	}
	assert.Len(t, doc.Images(), 1)
}

func TestBakeFailedRebakeKeepsPreviousImage(t *testing.T) {
	doc, obj := cubeScene(t)
	s := settings(t, Diffuse)
	s.Path = ""

	_, err := NewDriver(doc, ReferenceEngine{}, nil).BakeOne(context.Background(), obj, s)
	require.NoError(t, err)
	before, ok := doc.Image("Cube_diffuse_bake")
	require.True(t, ok)
	data := append([]byte(nil), before.Data...)

	flaky := &flakyEngine{fail: map[Type]bool{Diffuse: true}}
	_, err = NewDriver(doc, flaky, nil).BakeOne(context.Background(), obj, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrHostOperation)

	after, ok := doc.Image("Cube_diffuse_bake")
	require.True(t, ok, "failed re-bake must keep the earlier image")
	assert.Same(t, before, after)
	assert.True(t, after.Packed)
	assert.Equal(t, data, after.Data)
	assert.Len(t, doc.Images(), 1)
	assert.Empty(t, obj.Mesh.Materials[0].Images)
}

func TestBakeInvalidTarget(t *testing.T) {
	doc := scene.New()
	lamp := doc.Add(&scene.Object{Name: "Lamp", Type: scene.TypeLight})
	d := NewDriver(doc, ReferenceEngine{}, nil)

	_, err := d.BakeOne(context.Background(), lamp, settings(t, Diffuse))
	assert.Equal(t, fault.KindInvalidTarget, fault.KindOf(err))

	_, err = d.BakeOne(context.Background(), nil, settings(t, Diffuse))
	assert.Equal(t, fault.KindInvalidTarget, fault.KindOf(err))
}

func TestBakeEXRSaveFailureKeepsImage(t *testing.T) {
	doc, obj := cubeScene(t)
	d := NewDriver(doc, ReferenceEngine{}, nil)

	s := settings(t, Emit)
	s.Format = FormatEXR
	rep, err := d.BakeOne(context.Background(), obj, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, fault.ErrHostOperation)

	require.Len(t, rep.Baked, 1)
	assert.Empty(t, rep.Baked[0].Path)
	img, ok := doc.Image("Cube_emit_bake")
	require.True(t, ok)
	assert.True(t, img.Packed)
	assert.NoFileExists(t, PassPath(s.Path, Emit, FormatEXR))
}

func TestBakeEnginePanicIsRecorded(t *testing.T) {
	doc, obj := cubeScene(t)
	eng := engineFunc(func(p Pass, target *image.RGBA) error {
		if p.Type == Shadow {
			panic("gpu lost")
		}
		return nil
	})
	d := NewDriver(doc, eng, nil)

	s := settings(t, All)
	s.Path = ""
	rep, err := d.BakeOne(context.Background(), obj, s)
	require.NoError(t, err)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, Shadow, rep.Failed[0].Type)
	assert.Contains(t, rep.Summary(), "failed 1 (SHADOW)")
}

func TestBakeCancelled(t *testing.T) {
	doc, obj := cubeScene(t)
	d := NewDriver(doc, ReferenceEngine{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := d.BakeOne(ctx, obj, settings(t, All))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Baked)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Settings)
		ok   bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"all", func(s *Settings) { s.Type = All }, true},
		{"max resolution", func(s *Settings) { s.Resolution = MaxResolution }, true},
		{"too small", func(s *Settings) { s.Resolution = 128 }, false},
		{"too large", func(s *Settings) { s.Resolution = 16384 }, false},
		{"bad type", func(s *Settings) { s.Type = "GLOSSY" }, false},
		{"bad format", func(s *Settings) { s.Format = "GIF" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mod(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			}
		})
	}
}

func TestTypeExpand(t *testing.T) {
	assert.Equal(t, Types, All.Expand())
	assert.Len(t, All.Expand(), 11)
	assert.Equal(t, []Type{UV}, UV.Expand())

	typ, err := ParseType("combined")
	require.NoError(t, err)
	assert.Equal(t, Combined, typ)
}

func TestPassPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "wall_diffuse.jpeg"),
		PassPath(filepath.Join("out", "wall.png"), Diffuse, FormatJPEG))
	assert.Equal(t, "wall_ao.png", PassPath("wall", AO, FormatPNG))
}

func TestEncodeDecodeFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	ReferenceEngine{}.Bake(Pass{
		Object: scene.NewMeshObject("c", mesh.Cube("c", 1)),
		Type:   UV,
	}, src)

	dir := t.TempDir()
	for _, f := range []Format{FormatPNG, FormatTIFF, FormatBMP, FormatJPEG} {
		t.Run(string(f), func(t *testing.T) {
			path := filepath.Join(dir, "img."+f.Ext())
			require.NoError(t, SaveImage(path, src, f))

			file, err := os.Open(path)
			require.NoError(t, err)
			defer file.Close()
			got, err := Decode(file, f)
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), got.Bounds())
		})
	}
}
