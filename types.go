package typedconf

import (
	"context"
	"os"
)

// Source provides raw option values from one backend (defaults, env vars, files, CLI).
// Values are not converted yet: a bool loaded from an env var is still a string.
type Source interface {
	// Load returns the values found for options. A source may return several
	// LoadedSettings (e.g. one per config file), ordered from lowest to highest priority.
	// Missing optional data returns no entries rather than an error.
	Load(ctx context.Context, options OptionList) ([]LoadedSettings, error)
}

// SourceFunc is a function adapter for the Source interface.
type SourceFunc func(ctx context.Context, options OptionList) ([]LoadedSettings, error)

func (f SourceFunc) Load(ctx context.Context, options OptionList) ([]LoadedSettings, error) {
	return f(ctx, options)
}

// SourceMeta identifies where a set of values came from.
type SourceMeta struct {
	Name    string // Human readable identity used in error messages (e.g., "env", "file:/etc/app.toml")
	BaseDir string // Directory relative paths in this source's values are resolved against
}

// NewSourceMeta returns meta data with the current working directory as base directory.
func NewSourceMeta(name string) SourceMeta {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return SourceMeta{Name: name, BaseDir: cwd}
}

// LoadedSettings is the raw nested dict produced by one source.
type LoadedSettings struct {
	Settings map[string]any
	Meta     SourceMeta
}

// LoadedValue is a single option value together with the meta data of the source that won it.
type LoadedValue struct {
	Value any
	Meta  SourceMeta
}

// MergedSettings maps a dotted option path to its precedence-resolved value.
type MergedSettings map[string]LoadedValue

// Processor transforms the merged, still unconverted settings before conversion.
// Implementations may modify settings in place but must not add keys that
// are not option paths.
type Processor interface {
	Process(ctx context.Context, settings map[string]any, options OptionList) (map[string]any, error)
}

// ProcessorFunc is a function adapter for the Processor interface.
type ProcessorFunc func(ctx context.Context, settings map[string]any, options OptionList) (map[string]any, error)

func (f ProcessorFunc) Process(ctx context.Context, settings map[string]any, options OptionList) (map[string]any, error) {
	return f(ctx, settings, options)
}

// Optional distinguishes "not set" from "zero value".
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the wrapped value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// OrDefault returns the wrapped value or the provided default.
func (o Optional[T]) OrDefault(defaultVal T) T {
	if o.Set {
		return o.Value
	}
	return defaultVal
}

func (Optional[T]) typedconfLeaf() {}
