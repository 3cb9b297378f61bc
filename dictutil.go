package typedconf

import (
	"fmt"
	"strings"
)

// KeyError reports the first segment of a dotted path missing from a nested dict.
type KeyError struct {
	Path string
	Key  string
}

func (e *KeyError) Error() string {
	if e.Key == e.Path {
		return fmt.Sprintf("key %q not found", e.Key)
	}
	return fmt.Sprintf("key %q of path %q not found", e.Key, e.Path)
}

// GetPath looks up a dotted path in a nested dict.
// GetPath(d, "a.b") is equivalent to d["a"]["b"].
func GetPath(d map[string]any, path string) (any, error) {
	var current any = d
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, &KeyError{Path: path, Key: key}
		}
		current, ok = m[key]
		if !ok {
			return nil, &KeyError{Path: path, Key: key}
		}
	}
	return current, nil
}

// SetPath sets a value in a nested dict, creating missing intermediate dicts.
// SetPath(d, "a.b", 3) is equivalent to d["a"]["b"] = 3.
func SetPath(d map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	current := d
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

// PathValue is an option path paired with its value.
type PathValue struct {
	Path  string
	Value any
}

// IterSettings returns (path, value) pairs for every option present in d, in option order.
func IterSettings(d map[string]any, options OptionList) []PathValue {
	var values []PathValue
	for _, o := range options {
		v, err := GetPath(d, o.Path)
		if err != nil {
			continue
		}
		values = append(values, PathValue{Path: o.Path, Value: v})
	}
	return values
}

// MergeSettings merges loaded settings, ordered from lowest to highest
// priority, into a flat map of option paths. For each option the highest
// priority source that has a value wins, independent of sibling paths.
// Container values are taken wholesale from the winning source.
func MergeSettings(options OptionList, settings []LoadedSettings) MergedSettings {
	merged := make(MergedSettings, len(options))
	for _, o := range options {
		for i := len(settings) - 1; i >= 0; i-- {
			v, err := GetPath(settings[i].Settings, o.Path)
			if err != nil {
				continue
			}
			merged[o.Path] = LoadedValue{Value: v, Meta: settings[i].Meta}
			break
		}
	}
	return merged
}

// UpdateSettings returns a copy of merged with values replaced from overrides.
// Overrides may be flat (dotted keys) or nested. Source meta data is kept and
// merged is not modified.
func UpdateSettings(merged MergedSettings, overrides map[string]any) MergedSettings {
	updated := make(MergedSettings, len(merged))
	for path, lv := range merged {
		if v, ok := overrides[path]; ok {
			lv.Value = v
		} else if v, err := GetPath(overrides, path); err == nil {
			lv.Value = v
		}
		updated[path] = lv
	}
	return updated
}

// Flat2Nested expands merged settings back into a nested dict.
func Flat2Nested(merged MergedSettings) map[string]any {
	nested := make(map[string]any)
	for path, lv := range merged {
		SetPath(nested, path, lv.Value)
	}
	return nested
}
