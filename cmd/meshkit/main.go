// meshkit is a CLI for building LODs, exporting and baking textures of the
// meshes in a scene document.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/bake"
	"github.com/Faultbox/meshkit/internal/config"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/logger"
	"github.com/Faultbox/meshkit/internal/operator"
	"github.com/Faultbox/meshkit/internal/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	// Warnings raised while loading config go to stderr until the configured
	// logger replaces this one.
	logger.New(logger.Options{Level: "warn", Console: os.Stderr})

	var err error
	switch command {
	case "new":
		err = cmdNew(args)
	case "info", "ls":
		err = cmdInfo(args)
	case "select":
		err = cmdSelect(args)
	case "lod":
		err = cmdLod(args)
	case "export":
		err = cmdExport(args)
	case "bake":
		err = cmdBake(args)
	case "hull", "triangulate", "normals", "merge", "apply-transforms":
		err = cmdCleanup(command, args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshkit - LOD, export and bake tool for mesh scenes

Usage:
  meshkit <command> [options] [args]

Commands:
  new <name>...                Create a scene with a unit cube per name
  info                         List objects, LODs and images
  select <name>...             Select objects; the first becomes active
  lod add|remove|list          Manage LODs of the active object
  lod apply|select <index>     Apply or select one LOD (0-based)
  lod apply-all                Apply every live LOD
  lod ratio <index> <ratio>    Change the ratio of a live LOD
  export [-all]                Export selected (or all) meshes, one file each
  bake [-type T] [-res N]      Bake textures of the active object
  hull                         Create a convex hull of the active object
  triangulate                  Triangulate the active object
  normals                      Make normals of the active object point outward
  merge [-distance d]          Weld close vertices of the active object
  apply-transforms             Bake transforms of the selected objects
  config [-save] [-remember]   Show (or store) the effective configuration

Common options:
  -scene <file>    Scene document (default scene.yaml)
  -config <file>   Config file (.yaml or .toml)
  -debug           Debug logging

Examples:
  meshkit new Crate Barrel
  meshkit select Crate
  meshkit lod add -ratio 0.25
  meshkit export -all -format gltf -out build/
  meshkit bake -type ALL -res 512 -path textures/crate.png`)
}

// env is the state shared by a single command run.
type env struct {
	cfg  *config.Config
	log  *zap.Logger
	doc  *scene.Document
	ops  *operator.Operators
	path string
}

// setup parses args with the shared flags, loads config, logging and the
// scene. A missing scene is an error unless allowMissing is set.
func setup(fs *flag.FlagSet, args []string, allowMissing bool) (*env, error) {
	shared := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(shared)
	if err != nil {
		return nil, err
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: os.Stderr}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log, path: cfg.Scene.Path}
	e.doc, err = scene.Load(e.path)
	switch {
	case err == nil:
	case allowMissing && errors.Is(err, os.ErrNotExist):
		e.doc = scene.New()
	default:
		return nil, err
	}

	e.ops = operator.New(e.doc, kernel.NewReference(), bake.ReferenceEngine{}, log)
	if err := e.ops.LOD.SetDefaultRatio(cfg.LOD.DefaultRatio); err != nil {
		return nil, err
	}
	return e, nil
}

// finish prints the outcome and saves the scene when the operator changed
// it.
func (e *env) finish(out operator.Outcome) error {
	fmt.Println(out.Message)
	if out.Status != operator.Finished {
		return out.Err
	}
	if err := e.doc.Save(e.path); err != nil {
		return fmt.Errorf("saving scene: %w", err)
	}
	return out.Err
}

// interruptible returns a context cancelled by Ctrl-C. Batches stop between
// items.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func progress(label string) func(float64) {
	return func(f float64) {
		fmt.Fprintf(os.Stderr, "\r%s %3.0f%%", label, f*100)
		if f >= 1 {
			fmt.Fprintln(os.Stderr)
		}
	}
}
