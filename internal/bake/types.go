// Package bake renders material passes of a mesh object into document
// images and optionally writes them to disk.
package bake

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a bake pass.
type Type string

const (
	Diffuse      Type = "DIFFUSE"
	Normal       Type = "NORMAL"
	Roughness    Type = "ROUGHNESS"
	Emit         Type = "EMIT"
	AO           Type = "AO"
	Combined     Type = "COMBINED"
	Transmission Type = "TRANSMISSION"
	Environment  Type = "ENVIRONMENT"
	Shadow       Type = "SHADOW"
	Position     Type = "POSITION"
	UV           Type = "UV"

	// All runs every concrete pass in turn.
	All Type = "ALL"
)

// Types lists the concrete passes in the order All runs them.
var Types = []Type{
	Diffuse, Normal, Roughness, Emit, AO, Combined,
	Transmission, Environment, Shadow, Position, UV,
}

// Flags select which light contributions a pass includes.
type Flags struct {
	Direct   bool
	Indirect bool
	Color    bool
}

// Passes missing from the table bake with all flags off and let the engine
// use its defaults.
var passFlags = map[Type]Flags{
	Diffuse:  {Color: true},
	AO:       {Direct: true},
	Combined: {Direct: true, Indirect: true, Color: true},
}

// Flags returns the contribution flags for t.
func (t Type) Flags() Flags {
	return passFlags[t]
}

// Expand returns the concrete passes t stands for.
func (t Type) Expand() []Type {
	if t == All {
		return append([]Type(nil), Types...)
	}
	return []Type{t}
}

// Slug is the lower-case name used in image and file names.
func (t Type) Slug() string {
	return strings.ToLower(string(t))
}

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid bake settings")

// ParseType parses a pass name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if t == All {
		return t, nil
	}
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported bake type %q", ErrInvalidSettings, s)
}

// Format is the file format baked images are saved in.
type Format string

const (
	FormatPNG  Format = "PNG"
	FormatJPEG Format = "JPEG"
	FormatTIFF Format = "TIFF"
	FormatBMP  Format = "BMP"
	FormatEXR  Format = "EXR"
)

// Formats lists the accepted image formats.
var Formats = []Format{FormatPNG, FormatJPEG, FormatTIFF, FormatBMP, FormatEXR}

// ParseFormat parses an image format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown image format %q", ErrInvalidSettings, s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	return strings.ToLower(string(f))
}

const (
	MinResolution     = 256
	MaxResolution     = 8192
	DefaultResolution = 1024
	DefaultPath       = "baked_texture.png"
)

// Settings configure one bake.
type Settings struct {
	Type       Type
	Resolution int
	Format     Format
	// Path is the save location template. Each pass is written next to it
	// as {Path without extension}_{pass}.{format}. Empty skips saving.
	Path string
}

// DefaultSettings returns a diffuse PNG bake at the default resolution.
func DefaultSettings() Settings {
	return Settings{
		Type:       Diffuse,
		Resolution: DefaultResolution,
		Format:     FormatPNG,
		Path:       DefaultPath,
	}
}

// Validate checks the pass type, resolution and format.
func (s Settings) Validate() error {
	if _, err := ParseType(string(s.Type)); err != nil {
		return err
	}
	if s.Resolution < MinResolution || s.Resolution > MaxResolution {
		return fmt.Errorf("%w: resolution %d outside [%d, %d]",
			ErrInvalidSettings, s.Resolution, MinResolution, MaxResolution)
	}
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	return nil
}
