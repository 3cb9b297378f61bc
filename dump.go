package typedconf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

type dumpFormat int

const (
	dumpText dumpFormat = iota
	dumpJSON
	dumpTOML
)

type dumpConfig struct {
	withSources bool
	format      dumpFormat
	indent      string
}

// WithSources includes source attribution for each option in text output.
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// AsJSON outputs settings as a nested JSON document.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.format = dumpJSON
	}
}

// AsTOML outputs settings as a TOML document that can be used as a config file.
func AsTOML() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.format = dumpTOML
	}
}

// WithIndent sets the indentation for JSON and TOML output.
// Default is two spaces ("  ").
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// DumpEffective writes the effective settings, one option per line in text
// mode. Secret options are shown as SecretRepr.
func DumpEffective[T any](w io.Writer, cfg *T, opts ...DumpOption) error {
	if cfg == nil {
		return ErrNilConfig
	}

	config := dumpConfig{indent: "  "}
	for _, opt := range opts {
		opt(&config)
	}

	options, err := OptionsFor[T]()
	if err != nil {
		return err
	}
	prov, _ := GetProvenance(cfg)
	root := reflect.ValueOf(cfg).Elem()

	switch config.format {
	case dumpJSON:
		return dumpAsJSON(w, root, options, config)
	case dumpTOML:
		return dumpAsTOML(w, root, options, config)
	default:
		return dumpAsText(w, root, options, prov, config)
	}
}

func dumpAsText(w io.Writer, root reflect.Value, options OptionList, prov *Provenance, config dumpConfig) error {
	for _, o := range options {
		line := fmt.Sprintf("%s: %s", o.Path, formatValueAsString(root.FieldByIndex(o.FieldIndex), o.Secret))
		if config.withSources && prov != nil {
			if fp, ok := prov.Lookup(o.Path); ok {
				source := fp.Source
				if source == "" {
					source = "default"
				}
				line += fmt.Sprintf(" (source: %s)", source)
			}
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
	return nil
}

func dumpAsJSON(w io.Writer, root reflect.Value, options OptionList, config dumpConfig) error {
	result := dumpTree(root, options)

	var data []byte
	var err error
	if config.indent != "" {
		data, err = json.MarshalIndent(result, "", config.indent)
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

func dumpAsTOML(w io.Writer, root reflect.Value, options OptionList, config dumpConfig) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(config.indent != "")
	if config.indent != "" {
		enc.SetIndentSymbol(config.indent)
	}
	if err := enc.Encode(dumpTree(root, options)); err != nil {
		return fmt.Errorf("toml marshal error: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// dumpTree builds a nested dict of plain values. Unset optional options are
// left out since TOML has no null.
func dumpTree(root reflect.Value, options OptionList) map[string]any {
	result := make(map[string]any)
	for _, o := range options {
		v, ok := plainValue(root.FieldByIndex(o.FieldIndex), o.Secret)
		if !ok {
			continue
		}
		SetPath(result, o.Path, v)
	}
	return result
}

// plainValue converts v into a value encoders understand. ok is false for unset values.
func plainValue(v reflect.Value, secret bool) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if isOptionalType(v.Type()) {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}
			return plainValue(v.Elem(), secret)
		}
		if !v.Field(1).Bool() {
			return nil, false
		}
		return plainValue(v.Field(0), secret)
	}
	if secret {
		return SecretRepr, true
	}

	switch val := v.Interface().(type) {
	case time.Time:
		return val.Format(time.RFC3339Nano), true
	case time.Duration:
		return val.String(), true
	case url.URL:
		return val.String(), true
	case net.IP:
		return val.String(), true
	case uuid.UUID:
		return val.String(), true
	case unionValue:
		if inner := reflect.ValueOf(v.Interface().(interface{ Value() any }).Value()); inner.IsValid() {
			return plainValue(inner, false)
		}
		return nil, false
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), true
		}
		items := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if item, ok := plainValue(v.Index(i), false); ok {
				items = append(items, item)
			}
		}
		return items, true
	case reflect.Map:
		if v.Type().Elem() == emptyStructType {
			items := make([]any, 0, v.Len())
			for _, k := range v.MapKeys() {
				if item, ok := plainValue(k, false); ok {
					items = append(items, item)
				}
			}
			sort.Slice(items, func(i, j int) bool { return fmt.Sprint(items[i]) < fmt.Sprint(items[j]) })
			return items, true
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if item, ok := plainValue(iter.Value(), false); ok {
				m[fmt.Sprint(iter.Key().Interface())] = item
			}
		}
		return m, true
	}

	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return v.Interface(), true
}

// formatValueAsString formats an option value for text output, redacting secrets.
func formatValueAsString(v reflect.Value, secret bool) string {
	if isOptionalType(v.Type()) {
		if _, ok := plainValue(v, false); !ok {
			return "<not set>"
		}
	}
	if secret {
		return SecretRepr
	}

	pv, _ := plainValue(v, false)
	switch val := pv.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}
