package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshkit/internal/config"
	"github.com/Faultbox/meshkit/internal/lod"
	"github.com/Faultbox/meshkit/internal/operator"
	"github.com/Faultbox/meshkit/internal/scene"
	"github.com/Faultbox/meshkit/pkg/mesh"
)

func cmdNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	size := fs.Float64("size", 1, "Cube edge length")
	spacing := fs.Float64("spacing", 3, "Distance between cubes along X")
	force := fs.Bool("force", false, "Overwrite an existing scene")
	e, err := setup(fs, args, true)
	if err != nil {
		return err
	}
	if e.doc.Len() > 0 && !*force {
		return fmt.Errorf("scene %s already exists (use -force)", e.path)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: meshkit new <name>...")
	}

	doc := scene.New()
	for i, name := range fs.Args() {
		obj := scene.NewMeshObject(name, mesh.Cube(name, float32(*size/2)))
		obj.Location = [3]float32{float32(float64(i) * *spacing), 0, 0}
		doc.Add(obj)
	}
	first, _ := doc.FindByName(fs.Arg(0))
	doc.SelectOnly(first.ID)

	if err := doc.Save(e.path); err != nil {
		return err
	}
	fmt.Printf("Created %s with %d objects\n", e.path, doc.Len())
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	e, err := setup(fs, args, false)
	if err != nil {
		return err
	}

	fmt.Printf("Scene:   %s\n", e.path)
	fmt.Printf("Objects: %d\n", e.doc.Len())
	fmt.Println()
	for _, obj := range e.doc.Objects() {
		mark := " "
		if e.doc.IsSelected(obj.ID) {
			mark = "*"
		}
		if a := e.doc.Active(); a != nil && a.ID == obj.ID {
			mark = ">"
		}
		line := fmt.Sprintf("%s %-24s %-6s", mark, obj.Name, obj.Type)
		if obj.Mesh != nil {
			line += fmt.Sprintf(" %6d verts %6d tris", len(obj.Mesh.Positions), obj.Mesh.TriangleCount())
		}
		if len(obj.Modifiers) > 0 {
			names := make([]string, len(obj.Modifiers))
			for i, m := range obj.Modifiers {
				names[i] = m.Name
			}
			line += "  [" + strings.Join(names, ", ") + "]"
		}
		fmt.Println(line)
		printLods(e, obj, "    ")
	}

	if imgs := e.doc.Images(); len(imgs) > 0 {
		fmt.Println()
		fmt.Println("Images:")
		for _, img := range imgs {
			fmt.Printf("  %-32s %dx%d packed=%t %s\n", img.Name, img.Width, img.Height, img.Packed, img.FilePath)
		}
	}
	return nil
}

func printLods(e *env, base *scene.Object, indent string) {
	for _, entry := range e.ops.LOD.Entries(base) {
		switch entry.Object {
		case nil:
			fmt.Printf("%s%d: (deleted)\n", indent, entry.Index)
		default:
			fmt.Printf("%s%d: %-20s %-8s", indent, entry.Index, entry.Object.Name, entry.State)
			if entry.State == lod.Live {
				fmt.Printf(" ratio %.3f", entry.Ratio)
			}
			fmt.Println()
		}
	}
}

func cmdSelect(args []string) error {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	e, err := setup(fs, args, false)
	if err != nil {
		return err
	}

	var ids []string
	for _, name := range fs.Args() {
		obj, ok := e.doc.FindByName(name)
		if !ok {
			return fmt.Errorf("no object named %q", name)
		}
		ids = append(ids, obj.ID)
	}

	e.doc.DeselectAll()
	for _, id := range ids {
		e.doc.Select(id, true)
	}
	if len(ids) > 0 {
		e.doc.SetActive(ids[0])
	} else {
		e.doc.SetActive("")
	}
	return e.finish(operator.Outcome{
		Status:  operator.Finished,
		Message: fmt.Sprintf("Selected %d objects", len(ids)),
	})
}

func cmdLod(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: meshkit lod add|remove|list|apply|apply-all|select|ratio")
	}
	sub := args[0]
	fs := flag.NewFlagSet("lod "+sub, flag.ExitOnError)
	e, err := setup(fs, args[1:], false)
	if err != nil {
		return err
	}

	index := func() (int, error) {
		if fs.NArg() < 1 {
			return 0, fmt.Errorf("usage: meshkit lod %s <index>", sub)
		}
		return strconv.Atoi(fs.Arg(0))
	}

	switch sub {
	case "list":
		base := e.doc.Active()
		if base == nil {
			return fmt.Errorf("no active object")
		}
		fmt.Printf("%s:\n", base.Name)
		printLods(e, base, "  ")
		return nil
	case "add":
		return e.finish(e.ops.AddLod())
	case "remove":
		return e.finish(e.ops.RemoveLod())
	case "apply-all":
		return e.finish(e.ops.ApplyAllLods())
	case "apply", "select":
		i, err := index()
		if err != nil {
			return err
		}
		if sub == "apply" {
			return e.finish(e.ops.ApplyLod(i))
		}
		return e.finish(e.ops.SelectLod(i))
	case "ratio":
		i, err := index()
		if err != nil {
			return err
		}
		if fs.NArg() < 2 {
			return fmt.Errorf("usage: meshkit lod ratio <index> <ratio>")
		}
		r, err := strconv.ParseFloat(fs.Arg(1), 64)
		if err != nil {
			return err
		}
		return e.finish(e.ops.SetLodRatio(i, r))
	}
	return fmt.Errorf("unknown lod command %q", sub)
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	all := fs.Bool("all", false, "Export every mesh object instead of the selection")
	noApply := fs.Bool("no-apply", false, "Export base meshes without committing modifiers")
	withLods := fs.Bool("with-lods", false, "Also export LOD objects")
	e, err := setup(fs, args, false)
	if err != nil {
		return err
	}

	s, err := e.cfg.ExportSettings()
	if err != nil {
		return err
	}
	if *noApply {
		s.ApplyModifiers = false
	}
	if *withLods {
		s.ExcludeLODs = false
	}

	ctx, cancel := interruptible()
	defer cancel()
	e.ops.Export.OnProgress = progress("exporting")

	var out operator.Outcome
	if *all {
		out = e.ops.BatchExport(ctx, s)
	} else {
		out = e.ops.ExportSelected(ctx, s)
	}
	fmt.Println(out.Message)
	return out.Err
}

func cmdBake(args []string) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	typ := fs.String("type", "", "Bake type (DIFFUSE, NORMAL, ..., ALL)")
	res := fs.Int("res", 0, "Image resolution")
	imgFormat := fs.String("image-format", "", "PNG, JPEG, TIFF, BMP or EXR")
	path := fs.String("path", "", "Save path template")
	noSave := fs.Bool("no-save", false, "Keep images in the scene only")
	e, err := setup(fs, args, false)
	if err != nil {
		return err
	}

	if *typ != "" {
		e.cfg.Bake.Type = *typ
	}
	if *res > 0 {
		e.cfg.Bake.Resolution = *res
	}
	if *imgFormat != "" {
		e.cfg.Bake.Format = *imgFormat
	}
	if *path != "" {
		e.cfg.Bake.Path = *path
	}
	s, err := e.cfg.BakeSettings()
	if err != nil {
		return err
	}
	if *noSave {
		s.Path = ""
	}

	ctx, cancel := interruptible()
	defer cancel()
	e.ops.Bake.OnProgress = progress("baking")

	return e.finish(e.ops.BakeOne(ctx, s))
}

func cmdCleanup(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	distance := fs.Float64("distance", -1, "Merge distance in metres (merge only)")
	e, err := setup(fs, args, false)
	if err != nil {
		return err
	}

	switch command {
	case "hull":
		return e.finish(e.ops.CreateConvexHull())
	case "triangulate":
		return e.finish(e.ops.Triangulate())
	case "normals":
		return e.finish(e.ops.CorrectNormals())
	case "merge":
		d := e.cfg.Mesh.MergeDistance
		if *distance >= 0 {
			d = *distance
		}
		return e.finish(e.ops.MergeVertices(d))
	default:
		return e.finish(e.ops.ApplyTransforms())
	}
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.String("save", "", "Write the effective config to this file")
	remember := fs.Bool("remember", false, "Store export format/folder, LOD ratio and merge distance as preferences")
	shared := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(shared)
	if err != nil {
		return err
	}

	if *save != "" {
		if err := cfg.SaveTo(*save); err != nil {
			return err
		}
		fmt.Printf("Saved config to %s\n", *save)
	}
	if *remember && shared.Prefs != "" {
		config.SavePrefs(shared.Prefs, config.PrefsFrom(cfg), nil)
		fmt.Printf("Saved preferences to %s\n", shared.Prefs)
	}
	if *save == "" && !*remember {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}
	return nil
}
