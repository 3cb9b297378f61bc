package typedconf

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Azhovan/typedconf/internal/normalize"
)

// DefaultKind tells how an option obtains its default value.
type DefaultKind int

const (
	// DefaultRequired marks options without a default.
	DefaultRequired DefaultKind = iota
	// DefaultValue marks options with a static default.
	DefaultValue
	// DefaultFactory marks options whose default is produced by a factory.
	// Factories run only after every source has been merged.
	DefaultFactory
)

// Default is the default of an option: required, a static value, or a factory.
type Default struct {
	kind    DefaultKind
	value   any
	factory func() any
}

// NoDefault returns the default of a required option.
func NoDefault() Default {
	return Default{kind: DefaultRequired}
}

// DefaultOf returns a static default.
func DefaultOf(v any) Default {
	return Default{kind: DefaultValue, value: v}
}

// FactoryDefault returns a default produced by fn.
func FactoryDefault(fn func() any) Default {
	return Default{kind: DefaultFactory, factory: fn}
}

// Kind returns the kind of the default.
func (d Default) Kind() DefaultKind { return d.kind }

// Value returns the static default, if there is one.
func (d Default) Value() (any, bool) {
	return d.value, d.kind == DefaultValue
}

// Factory returns the default factory, if there is one.
func (d Default) Factory() (func() any, bool) {
	return d.factory, d.kind == DefaultFactory
}

// IsRequired reports whether the option has no default.
func (d Default) IsRequired() bool { return d.kind == DefaultRequired }

// ConvertFunc converts a raw option value for a single field, bypassing the Converter.
type ConvertFunc func(value any) (any, error)

// OptionInfo describes one leaf option of a settings type.
type OptionInfo struct {
	Path       string            // Dotted path relative to the root settings type (e.g., "host.port")
	Parent     reflect.Type      // Settings type declaring the field (root or nested)
	Type       reflect.Type      // Declared field type
	FieldIndex []int             // Field index chain from the root settings type
	Default    Default           // Default value, factory, or required marker
	Secret     bool              // Value must never be printed in clear text
	Converter  ConvertFunc       // Per-field conversion override, may be nil
	Metadata   map[string]string // Free-form data for CLI adapters (help, flag, short)
}

// OptionList is the ordered list of all options of a settings type.
type OptionList []OptionInfo

// Paths returns all option paths in declaration order.
func (l OptionList) Paths() []string {
	paths := make([]string, len(l))
	for i, o := range l {
		paths[i] = o.Path
	}
	return paths
}

// Lookup returns the option with the given path.
func (l OptionList) Lookup(path string) (OptionInfo, bool) {
	for _, o := range l {
		if o.Path == path {
			return o, true
		}
	}
	return OptionInfo{}, false
}

// PathSet returns the option paths as a set.
func (l OptionList) PathSet() map[string]bool {
	set := make(map[string]bool, len(l))
	for _, o := range l {
		set[o.Path] = true
	}
	return set
}

// Field describes one field of a settings type as reported by a SchemaProvider.
type Field struct {
	Name      string // Option name of the field (one path segment)
	GoName    string // Declared Go field name
	Index     []int  // Index for reflect.Value.FieldByIndex relative to the declaring type
	Type      reflect.Type
	Default   Default
	Nested    bool // Field type is itself a settings type
	Secret    bool
	Converter ConvertFunc
	Metadata  map[string]string
}

// SchemaProvider turns one kind of Go type into settings fields.
type SchemaProvider interface {
	// IsSchema reports whether t is a settings type of this provider.
	IsSchema(t reflect.Type) bool

	// Resolve checks that every field type of t, including nested settings
	// types, can be resolved. It runs once before options are collected.
	Resolve(t reflect.Type) error

	// Fields lists the init-enabled fields of t in declaration order.
	Fields(t reflect.Type) ([]Field, error)
}

var (
	providersMu sync.RWMutex
	providers   = []SchemaProvider{StructProvider{}}

	optionCache sync.Map // reflect.Type -> OptionList
)

// RegisterSchemaProvider adds a provider. Providers registered later are asked first.
func RegisterSchemaProvider(p SchemaProvider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers = append([]SchemaProvider{p}, providers...)
	optionCache.Range(func(key, _ any) bool {
		optionCache.Delete(key)
		return true
	})
}

// ProviderFor returns the provider responsible for t.
func ProviderFor(t reflect.Type) (SchemaProvider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	for _, p := range providers {
		if p.IsSchema(t) {
			return p, true
		}
	}
	return nil, false
}

// IsSettingsType reports whether any provider handles t.
func IsSettingsType(t reflect.Type) bool {
	_, ok := ProviderFor(t)
	return ok
}

// OptionsFor returns the options of the settings type T.
func OptionsFor[T any]() (OptionList, error) {
	return DeepOptions(reflect.TypeOf((*T)(nil)).Elem())
}

// DeepOptions walks t and its nested settings types depth-first and returns
// one OptionInfo per leaf field. Paths of nested fields are prefixed with the
// name of the field holding the nested type; no option is emitted for that
// field itself. Results are cached per type.
func DeepOptions(t reflect.Type) (OptionList, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: cannot handle type <nil>", ErrSchema)
	}
	if cached, ok := optionCache.Load(t); ok {
		return append(OptionList(nil), cached.(OptionList)...), nil
	}

	provider, ok := ProviderFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: cannot handle type %s", ErrSchema, t)
	}
	if err := provider.Resolve(t); err != nil {
		return nil, err
	}

	var result OptionList
	var walk func(p SchemaProvider, typ reflect.Type, prefix string, index []int) error
	walk = func(p SchemaProvider, typ reflect.Type, prefix string, index []int) error {
		fields, err := p.Fields(typ)
		if err != nil {
			return err
		}
		for _, f := range fields {
			fieldIndex := append(append([]int(nil), index...), f.Index...)
			if f.Nested {
				nestedProvider, ok := ProviderFor(f.Type)
				if !ok {
					return fmt.Errorf("%w: cannot handle type %s", ErrSchema, f.Type)
				}
				if err := walk(nestedProvider, f.Type, normalize.ApplyPrefix(prefix, f.Name), fieldIndex); err != nil {
					return err
				}
				continue
			}
			result = append(result, OptionInfo{
				Path:       normalize.ApplyPrefix(prefix, f.Name),
				Parent:     typ,
				Type:       f.Type,
				FieldIndex: fieldIndex,
				Default:    f.Default,
				Secret:     f.Secret || isSecretType(f.Type),
				Converter:  f.Converter,
				Metadata:   f.Metadata,
			})
		}
		return nil
	}

	if err := walk(provider, t, "", nil); err != nil {
		return nil, err
	}

	optionCache.Store(t, result)
	return append(OptionList(nil), result...), nil
}

// OptionGroup is a run of consecutive options owned by the same field of the
// root settings type.
type OptionGroup struct {
	Type    reflect.Type // Nested settings type, or the root type for top-level scalars
	Prefix  string       // Name of the nested field, empty for top-level scalars
	Options OptionList
}

// GroupOptions groups consecutive options in declaration order by the nested
// settings type that owns them. Top-level scalar options group under t itself.
// A nested type used by two fields yields two groups.
func GroupOptions(t reflect.Type, options OptionList) ([]OptionGroup, error) {
	provider, ok := ProviderFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: cannot handle type %s", ErrSchema, t)
	}
	fields, err := provider.Fields(t)
	if err != nil {
		return nil, err
	}

	groupTypes := make(map[string]reflect.Type, len(fields))
	for _, f := range fields {
		if f.Nested {
			groupTypes[f.Name] = f.Type
		} else {
			groupTypes[f.Name] = t
		}
	}

	var groups []OptionGroup
	for _, o := range options {
		base, _, nested := strings.Cut(o.Path, ".")
		prefix := ""
		if nested {
			prefix = base
		}
		groupType, ok := groupTypes[base]
		if !ok {
			return nil, fmt.Errorf("%w: option %q does not belong to %s", ErrSchema, o.Path, t)
		}

		last := len(groups) - 1
		if last >= 0 && groups[last].Prefix == prefix && groups[last].Type == groupType {
			groups[last].Options = append(groups[last].Options, o)
			continue
		}
		groups = append(groups, OptionGroup{Type: groupType, Prefix: prefix, Options: OptionList{o}})
	}

	return groups, nil
}
