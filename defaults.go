package typedconf

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// DefaultsSource provides the static defaults of all options. Required options
// and options with a default factory are skipped; factories run during
// conversion, after every source has been merged.
type DefaultsSource struct{}

// Load implements Source.
func (DefaultsSource) Load(_ context.Context, options OptionList) ([]LoadedSettings, error) {
	settings := make(map[string]any)
	for _, o := range options {
		if v, ok := o.Default.Value(); ok {
			SetPath(settings, o.Path, v)
		}
	}
	return []LoadedSettings{{Settings: settings, Meta: NewSourceMeta("default")}}, nil
}

// MapSource provides values from an in-memory nested dict.
// Keys that are not option paths are rejected.
type MapSource struct {
	Name     string
	Settings map[string]any
}

// NewMapSource creates a MapSource named "map".
func NewMapSource(settings map[string]any) *MapSource {
	return &MapSource{Name: "map", Settings: settings}
}

// Load implements Source.
func (s *MapSource) Load(_ context.Context, options OptionList) ([]LoadedSettings, error) {
	name := s.Name
	if name == "" {
		name = "map"
	}
	if invalid := invalidPaths(s.Settings, "", options.PathSet()); len(invalid) > 0 {
		return nil, &InvalidOptionsError{Source: name, Paths: invalid}
	}
	return []LoadedSettings{{Settings: s.Settings, Meta: NewSourceMeta(name)}}, nil
}

// invalidPaths lists the keys of d that are neither option paths nor prefixes of one.
func invalidPaths(d map[string]any, prefix string, valid map[string]bool) []string {
	var invalid []string
	for key, v := range d {
		path := prefix + key
		if valid[path] {
			continue
		}
		if sub, ok := v.(map[string]any); ok && hasPathPrefix(valid, path+".") {
			invalid = append(invalid, invalidPaths(sub, path+".", valid)...)
			continue
		}
		invalid = append(invalid, path)
	}
	return invalid
}

func hasPathPrefix(valid map[string]bool, prefix string) bool {
	for p := range valid {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// InstanceSource provides every option value of an existing settings instance.
// The values are already typed, so conversion keeps them as they are.
type InstanceSource[T any] struct {
	Instance *T
}

// NewInstanceSource creates a source that reads option values from instance.
func NewInstanceSource[T any](instance *T) *InstanceSource[T] {
	return &InstanceSource[T]{Instance: instance}
}

// Load implements Source.
func (s *InstanceSource[T]) Load(_ context.Context, options OptionList) ([]LoadedSettings, error) {
	if s.Instance == nil {
		return nil, ErrNilConfig
	}
	root := reflect.ValueOf(s.Instance).Elem()
	if root.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: cannot handle type %s", ErrSchema, root.Type())
	}

	settings := make(map[string]any)
	for _, o := range options {
		SetPath(settings, o.Path, root.FieldByIndex(o.FieldIndex).Interface())
	}
	return []LoadedSettings{{Settings: settings, Meta: NewSourceMeta("instance")}}, nil
}
