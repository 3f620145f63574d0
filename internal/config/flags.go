package config

import "flag"

// Flags are the command-line overrides shared by every meshkit command.
type Flags struct {
	Config  string
	Prefs   string
	Scene   string
	Debug   bool
	Format  string
	Folder  string
	Ratio   float64
	LogFile string
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file (.yaml or .toml)")
	fs.StringVar(&f.Prefs, "prefs", PrefsPath(), "Preferences file (empty to ignore)")
	fs.StringVar(&f.Scene, "scene", "", "Scene document to operate on")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Format, "format", "", "Export format (FBX, GLTF, OBJ)")
	fs.StringVar(&f.Folder, "out", "", "Export folder")
	fs.Float64Var(&f.Ratio, "ratio", -1, "Default LOD decimation ratio")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Scene != "" {
		cfg.Scene.Path = f.Scene
	}
	if f.Format != "" {
		cfg.Export.Format = f.Format
	}
	if f.Folder != "" {
		cfg.Export.Folder = f.Folder
	}
	if f.Ratio >= 0 {
		cfg.LOD.DefaultRatio = f.Ratio
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
