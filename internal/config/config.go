// Package config handles meshkit configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/meshkit/internal/bake"
	"github.com/Faultbox/meshkit/internal/export"
)

// Config holds all meshkit settings.
type Config struct {
	LOD     LODConfig     `yaml:"lod" toml:"lod"`
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Bake    BakeConfig    `yaml:"bake" toml:"bake"`
	Mesh    MeshConfig    `yaml:"mesh" toml:"mesh"`
	Scene   SceneConfig   `yaml:"scene" toml:"scene"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// LODConfig holds level-of-detail settings.
type LODConfig struct {
	DefaultRatio float64 `yaml:"default_ratio" toml:"default_ratio"` // Decimation ratio for new LODs
}

// ExportConfig holds file export settings.
type ExportConfig struct {
	Format         string `yaml:"format" toml:"format"` // FBX, GLTF or OBJ
	Folder         string `yaml:"folder" toml:"folder"`
	ApplyModifiers bool   `yaml:"apply_modifiers" toml:"apply_modifiers"`
	ExcludeLODs    bool   `yaml:"exclude_lods" toml:"exclude_lods"`
}

// BakeConfig holds texture bake settings.
type BakeConfig struct {
	Type       string `yaml:"type" toml:"type"`
	Resolution int    `yaml:"resolution" toml:"resolution"`
	Format     string `yaml:"format" toml:"format"`
	Path       string `yaml:"path" toml:"path"`
}

// MeshConfig holds mesh cleanup settings.
type MeshConfig struct {
	MergeDistance float64 `yaml:"merge_distance" toml:"merge_distance"` // Metres
}

// SceneConfig holds the scene document location.
type SceneConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LOD: LODConfig{
			DefaultRatio: 0.5,
		},
		Export: ExportConfig{
			Format:         string(export.FormatFBX),
			Folder:         "export",
			ApplyModifiers: true,
			ExcludeLODs:    true,
		},
		Bake: BakeConfig{
			Type:       string(bake.Diffuse),
			Resolution: bake.DefaultResolution,
			Format:     string(bake.FormatPNG),
			Path:       bake.DefaultPath,
		},
		Mesh: MeshConfig{
			MergeDistance: 0.001,
		},
		Scene: SceneConfig{
			Path: "scene.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ExportSettings converts the export section for the export driver.
func (c *Config) ExportSettings() (export.Settings, error) {
	f, err := export.ParseFormat(c.Export.Format)
	if err != nil {
		return export.Settings{}, err
	}
	s := export.Settings{
		Format:         f,
		Folder:         c.Export.Folder,
		ApplyModifiers: c.Export.ApplyModifiers,
		ExcludeLODs:    c.Export.ExcludeLODs,
	}
	return s, s.Validate()
}

// BakeSettings converts the bake section for the bake driver.
func (c *Config) BakeSettings() (bake.Settings, error) {
	t, err := bake.ParseType(c.Bake.Type)
	if err != nil {
		return bake.Settings{}, err
	}
	f, err := bake.ParseFormat(c.Bake.Format)
	if err != nil {
		return bake.Settings{}, err
	}
	s := bake.Settings{Type: t, Resolution: c.Bake.Resolution, Format: f, Path: c.Bake.Path}
	return s, s.Validate()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.LOD.DefaultRatio < 0 || c.LOD.DefaultRatio > 1 {
		return fmt.Errorf("lod.default_ratio %g outside [0, 1]", c.LOD.DefaultRatio)
	}
	if c.Mesh.MergeDistance < 0 {
		return fmt.Errorf("mesh.merge_distance %g is negative", c.Mesh.MergeDistance)
	}
	if _, err := c.ExportSettings(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := c.BakeSettings(); err != nil {
		return fmt.Errorf("bake: %w", err)
	}
	return nil
}
