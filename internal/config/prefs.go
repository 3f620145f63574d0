package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/export"
)

// Prefs are the user-scoped preferences remembered between sessions.
type Prefs struct {
	ExportFormat    string  `json:"selected_export_format"`
	ExportFolder    string  `json:"export_folder"`
	LODDefaultRatio float64 `json:"lod_default_ratio"`
	MergeDistance   float64 `json:"merge_distance"`
}

// PrefsPath returns the preferences file in the config directory.
func PrefsPath() string {
	return filepath.Join(ConfigDir(), "prefs.json")
}

// PrefsFrom extracts the remembered values from cfg.
func PrefsFrom(cfg *Config) Prefs {
	return Prefs{
		ExportFormat:    cfg.Export.Format,
		ExportFolder:    cfg.Export.Folder,
		LODDefaultRatio: cfg.LOD.DefaultRatio,
		MergeDistance:   cfg.Mesh.MergeDistance,
	}
}

// Apply copies the preferences into cfg.
func (p Prefs) Apply(cfg *Config) {
	cfg.Export.Format = p.ExportFormat
	cfg.Export.Folder = p.ExportFolder
	cfg.LOD.DefaultRatio = p.LODDefaultRatio
	cfg.Mesh.MergeDistance = p.MergeDistance
}

// LoadPrefs reads preferences from path on top of base. A missing or
// unreadable file, a missing key, or a value out of range keeps the value
// from base. Problems are logged, never returned.
func LoadPrefs(path string, base Prefs, log *zap.Logger) Prefs {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("reading preferences", zap.String("path", path), zap.Error(err))
		}
		return base
	}

	p := base
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn("parsing preferences", zap.String("path", path), zap.Error(err))
		return base
	}
	return p.sanitize(base, log.With(zap.String("path", path)))
}

// sanitize replaces every out-of-range value with the one from base.
func (p Prefs) sanitize(base Prefs, log *zap.Logger) Prefs {
	if _, err := export.ParseFormat(p.ExportFormat); err != nil {
		log.Warn("ignoring preference", zap.String("key", "selected_export_format"), zap.Error(err))
		p.ExportFormat = base.ExportFormat
	}
	if strings.TrimSpace(p.ExportFolder) == "" {
		log.Warn("ignoring preference", zap.String("key", "export_folder"), zap.String("reason", "empty"))
		p.ExportFolder = base.ExportFolder
	}
	if !(p.LODDefaultRatio >= 0 && p.LODDefaultRatio <= 1) {
		log.Warn("ignoring preference", zap.String("key", "lod_default_ratio"), zap.Float64("value", p.LODDefaultRatio))
		p.LODDefaultRatio = base.LODDefaultRatio
	}
	if p.MergeDistance < 0 {
		log.Warn("ignoring preference", zap.String("key", "merge_distance"), zap.Float64("value", p.MergeDistance))
		p.MergeDistance = base.MergeDistance
	}
	return p
}

// SavePrefs writes preferences to path. Failures are logged and dropped.
func SavePrefs(path string, p Prefs, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		log.Warn("encoding preferences", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn("saving preferences", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn("saving preferences", zap.String("path", path), zap.Error(err))
	}
}
