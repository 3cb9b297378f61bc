package typedconf

import (
	"encoding"
	"net/url"
	"reflect"
	"time"

	"github.com/Azhovan/typedconf/internal/normalize"
)

// SettingsFactories can be implemented by a settings struct to supply default
// factories, keyed by Go field name. Factories run only when no source
// provides a value for the field.
type SettingsFactories interface {
	SettingsFactories() map[string]func() any
}

// SettingsConverters can be implemented by a settings struct to override the
// conversion of single fields, keyed by Go field name.
type SettingsConverters interface {
	SettingsConverters() map[string]ConvertFunc
}

var (
	leafType            = reflect.TypeOf((*leaf)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	scalarStructs       = map[reflect.Type]bool{
		reflect.TypeOf(time.Time{}): true,
		reflect.TypeOf(url.URL{}):   true,
	}
)

// StructProvider handles plain Go structs configured with `conf` tags.
//
// Exported fields are options; fields tagged `conf:"-"` are skipped. A field
// whose type is another struct is a nested settings type unless the struct is
// a scalar (time.Time, url.URL, a TextUnmarshaler, or one of this package's
// value wrappers). Pointers to settings structs are deferred references and
// never resolve.
type StructProvider struct{}

// IsSchema implements SchemaProvider.
func (StructProvider) IsSchema(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	if scalarStructs[t] || t.Implements(leafType) {
		return false
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return false
	}
	return true
}

func (p StructProvider) isEmbeddedSchema(sf reflect.StructField) bool {
	return sf.Anonymous && p.IsSchema(sf.Type)
}

// Resolve implements SchemaProvider.
func (p StructProvider) Resolve(t reflect.Type) error {
	return p.resolve(t, t, typeName(t))
}

func (p StructProvider) resolve(root, t reflect.Type, goPath string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() && !p.isEmbeddedSchema(field) {
			continue
		}
		fieldPath := goPath + "." + field.Name
		ft := field.Type

		if ft.Kind() == reflect.Pointer && p.IsSchema(ft.Elem()) {
			return &UnresolvedTypeError{Settings: root, Field: fieldPath, Name: typeName(ft.Elem())}
		}
		if p.IsSchema(ft) {
			if err := p.resolve(root, ft, fieldPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fields implements SchemaProvider.
func (p StructProvider) Fields(t reflect.Type) ([]Field, error) {
	factories := settingsFactories(t)
	converters := settingsConverters(t)

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !p.isEmbeddedSchema(sf) {
			continue
		}
		tagCfg := parseTag(sf.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		// Embedded settings structs are flattened into the parent. For an
		// unexported embedded struct only its promoted exported fields count.
		if p.isEmbeddedSchema(sf) && (tagCfg.name == "" || !sf.IsExported()) {
			embedded, err := p.Fields(sf.Type)
			if err != nil {
				return nil, err
			}
			for _, f := range embedded {
				f.Index = append([]int{i}, f.Index...)
				fields = append(fields, f)
			}
			continue
		}

		name := tagCfg.name
		if name == "" {
			name = normalize.ToSnake(sf.Name)
		}

		f := Field{
			Name:     name,
			GoName:   sf.Name,
			Index:    []int{i},
			Type:     sf.Type,
			Nested:   IsSettingsType(sf.Type),
			Secret:   tagCfg.secret,
			Metadata: fieldMetadata(tagCfg),
		}
		if f.Nested {
			fields = append(fields, f)
			continue
		}

		switch {
		case factories[sf.Name] != nil:
			f.Default = FactoryDefault(factories[sf.Name])
		case tagCfg.hasDefault:
			f.Default = DefaultOf(tagCfg.defValue)
		case tagCfg.required:
			f.Default = NoDefault()
		case isOptionalType(sf.Type):
			f.Default = DefaultOf(nil)
		default:
			f.Default = NoDefault()
		}
		f.Converter = converters[sf.Name]

		fields = append(fields, f)
	}

	return fields, nil
}

func fieldMetadata(tagCfg tagConfig) map[string]string {
	meta := make(map[string]string)
	if tagCfg.help != "" {
		meta["help"] = tagCfg.help
	}
	if tagCfg.flag != "" {
		meta["flag"] = tagCfg.flag
	}
	if tagCfg.short != "" {
		meta["short"] = tagCfg.short
	}
	return meta
}

func settingsFactories(t reflect.Type) map[string]func() any {
	if sf, ok := reflect.New(t).Interface().(SettingsFactories); ok {
		return sf.SettingsFactories()
	}
	return nil
}

func settingsConverters(t reflect.Type) map[string]ConvertFunc {
	if sc, ok := reflect.New(t).Interface().(SettingsConverters); ok {
		return sc.SettingsConverters()
	}
	return nil
}

// isOptionalType reports whether t can hold "no value": Optional[T] or a pointer.
func isOptionalType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return true
	}
	return t.Kind() == reflect.Struct && t.NumField() == 2 &&
		t.Field(0).Name == "Value" && t.Field(1).Name == "Set" &&
		t.Implements(leafType) && t.PkgPath() == reflect.TypeOf(Optional[int]{}).PkgPath()
}
