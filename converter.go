package typedconf

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HookFunc converts value into an instance of target.
type HookFunc func(value any, target reflect.Type) (any, error)

// ConverterOption configures a Converter.
type ConverterOption func(*converterConfig)

type converterConfig struct {
	sep string
	fn  func(string) ([]any, error)
}

// WithStrListSeparator splits strings on sep when a list, set or array is expected.
func WithStrListSeparator(sep string) ConverterOption {
	return func(cfg *converterConfig) {
		cfg.sep = sep
	}
}

// WithStrListFunc uses fn (e.g. a JSON decoder) to turn strings into lists
// when a list, set or array is expected.
func WithStrListFunc(fn func(string) ([]any, error)) ConverterOption {
	return func(cfg *converterConfig) {
		cfg.fn = fn
	}
}

// Converter structures raw option values into typed Go values.
// Register hooks and enums before sharing a Converter between goroutines.
type Converter struct {
	hooks   map[reflect.Type]HookFunc
	enums   map[reflect.Type]map[string]any
	strList func(string) ([]any, error)
}

// NewConverter creates a Converter. Passing both a separator and a split
// function is an error.
func NewConverter(opts ...ConverterOption) (*Converter, error) {
	cfg := converterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Converter{
		hooks: make(map[reflect.Type]HookFunc),
		enums: make(map[reflect.Type]map[string]any),
	}
	if cfg.sep != "" || cfg.fn != nil {
		if err := c.RegisterStrListHook(cfg.sep, cfg.fn); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultConverter returns a Converter that splits strings on ":" when a
// collection is expected.
func DefaultConverter() *Converter {
	c, _ := NewConverter(WithStrListSeparator(":"))
	return c
}

// RegisterHook registers a conversion function for values of exactly type t.
// Hooks take precedence over all built-in conversions.
func (c *Converter) RegisterHook(t reflect.Type, fn HookFunc) {
	c.hooks[t] = fn
}

// RegisterStrListHook sets how strings become lists: either split on sep or
// parsed by fn. Exactly one of them must be given.
func (c *Converter) RegisterStrListHook(sep string, fn func(string) ([]any, error)) error {
	if (sep == "") == (fn == nil) {
		return ErrInvalidStrListHook
	}
	if fn == nil {
		fn = func(s string) ([]any, error) {
			parts := strings.Split(s, sep)
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		}
	}
	c.strList = fn
	return nil
}

// RegisterEnum makes E convertible from the names in members.
func RegisterEnum[E comparable](c *Converter, members map[string]E) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	m := make(map[string]any, len(members))
	for name, v := range members {
		m[name] = v
	}
	c.enums[t] = m
}

// Structure converts value into an instance of target. Relative ResolvedPath
// values are resolved against the current working directory.
func (c *Converter) Structure(value any, target reflect.Type) (any, error) {
	rv, err := c.structure(value, target, convState{})
	if err != nil {
		return nil, &ConversionError{Value: value, Target: target, Err: err}
	}
	return rv.Interface(), nil
}

// StructureAs converts value into a T.
func StructureAs[T any](c *Converter, value any) (T, error) {
	var zero T
	out, err := c.Structure(value, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// convState carries the context of the source a value came from.
type convState struct {
	baseDir string
	typed   bool // leaf values were already converted, field converters must not run again
}

func (st convState) resolveDir() (string, error) {
	if st.baseDir != "" {
		return st.baseDir, nil
	}
	return os.Getwd()
}

var (
	timeType         = reflect.TypeOf(time.Time{})
	durationType     = reflect.TypeOf(time.Duration(0))
	pathType         = reflect.TypeOf(Path(""))
	resolvedPathType = reflect.TypeOf(ResolvedPath(""))
	urlType          = reflect.TypeOf(url.URL{})
	ipType           = reflect.TypeOf(net.IP{})
	uuidType         = reflect.TypeOf(uuid.UUID{})
	bytesType        = reflect.TypeOf([]byte(nil))
	emptyStructType  = reflect.TypeOf(struct{}{})
	unionSetterType  = reflect.TypeOf((*unionSetter)(nil)).Elem()
	secretSetterType = reflect.TypeOf((*secretSetter)(nil)).Elem()
)

// structure dispatches on the target type: registered hooks, identical
// types, enums, value wrappers, special scalars, basic kinds, containers,
// and finally nested settings types.
func (c *Converter) structure(v any, t reflect.Type, st convState) (reflect.Value, error) {
	if hook, ok := c.hooks[t]; ok && !(st.typed && v != nil && reflect.TypeOf(v) == t) {
		out, err := hook(v, t)
		if err != nil {
			return reflect.Value{}, err
		}
		return valueAs(out, t)
	}

	if v != nil && reflect.TypeOf(v) == t {
		return reflect.ValueOf(v), nil
	}

	if members, ok := c.enums[t]; ok {
		out, err := toEnumValue(v, t, members)
		if err != nil {
			return reflect.Value{}, err
		}
		return valueAs(out, t)
	}

	switch {
	case t.Kind() == reflect.Interface:
		return structureInterface(v, t)
	case isOptionalType(t) && t.Kind() == reflect.Struct:
		return c.structureOptional(v, t, st)
	case t.Kind() == reflect.Pointer:
		return c.structurePointer(v, t, st)
	case reflect.PointerTo(t).Implements(unionSetterType):
		return c.structureUnion(v, t, st)
	case reflect.PointerTo(t).Implements(secretSetterType):
		return c.structureSecret(v, t, st)
	}

	if out, handled, err := structureSpecial(v, t, st); handled {
		return out, err
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := ToBool(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return toInt(v, t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return toUint(v, t)
	case reflect.Float32, reflect.Float64:
		return toFloat(v, t)
	case reflect.String:
		s, err := toString(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Slice:
		return c.structureSlice(v, t, st)
	case reflect.Array:
		return c.structureArray(v, t, st)
	case reflect.Map:
		if t.Elem() == emptyStructType {
			return c.structureSet(v, t, st)
		}
		return c.structureMap(v, t, st)
	case reflect.Struct:
		if IsSettingsType(t) {
			return c.structureSettings(v, t, st)
		}
	}

	return reflect.Value{}, fmt.Errorf("unsupported target type %s", t)
}

// valueAs turns a hook result into a value of type t.
func valueAs(out any, t reflect.Type) (reflect.Value, error) {
	if out == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(out)
	if rv.Type().AssignableTo(t) {
		result := reflect.New(t).Elem()
		result.Set(rv)
		return result, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("hook returned %T, want %s", out, t)
}

func structureInterface(v any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if v == nil {
		return out, nil
	}
	if !reflect.TypeOf(v).Implements(t) {
		return reflect.Value{}, fmt.Errorf("%T does not implement %s", v, t)
	}
	out.Set(reflect.ValueOf(v))
	return out, nil
}

func (c *Converter) structureOptional(v any, t reflect.Type, st convState) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if v == nil {
		return out, nil
	}
	inner, err := c.structure(v, t.Field(0).Type, st)
	if err != nil {
		return reflect.Value{}, err
	}
	out.Field(0).Set(inner)
	out.Field(1).SetBool(true)
	return out, nil
}

func (c *Converter) structurePointer(v any, t reflect.Type, st convState) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	inner, err := c.structure(v, t.Elem(), st)
	if err != nil {
		return reflect.Value{}, err
	}
	p := reflect.New(t.Elem())
	p.Elem().Set(inner)
	return p, nil
}

// structureUnion keeps values whose type already is a member type and
// otherwise tries the members in declaration order.
func (c *Converter) structureUnion(v any, t reflect.Type, st convState) (reflect.Value, error) {
	members := reflect.Zero(t).Interface().(unionValue).unionMembers()

	set := func(member reflect.Value) reflect.Value {
		p := reflect.New(t)
		p.Interface().(unionSetter).setUnion(member.Interface())
		return p.Elem()
	}

	if v != nil {
		vt := reflect.TypeOf(v)
		for _, m := range members {
			if vt == m {
				return set(reflect.ValueOf(v)), nil
			}
		}
	}

	var errs []error
	for _, m := range members {
		out, err := c.structure(v, m, st)
		if err == nil {
			return set(out), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", m, err))
	}
	return reflect.Value{}, fmt.Errorf("no union member matched: %w", errors.Join(errs...))
}

func (c *Converter) structureSecret(v any, t reflect.Type, st convState) (reflect.Value, error) {
	elem := reflect.Zero(t).Interface().(secretValue).secretElem()
	inner, err := c.structure(v, elem, st)
	if err != nil {
		return reflect.Value{}, err
	}
	p := reflect.New(t)
	p.Interface().(secretSetter).setSecret(inner.Interface())
	return p.Elem(), nil
}

// structureSpecial handles scalar types that need parsing beyond their kind.
func structureSpecial(v any, t reflect.Type, st convState) (reflect.Value, bool, error) {
	switch t {
	case timeType:
		tm, err := ToTime(v)
		return reflect.ValueOf(tm), true, err
	case durationType:
		d, err := ToDuration(v)
		return reflect.ValueOf(d), true, err
	case pathType:
		s, err := toPathString(v)
		return reflect.ValueOf(Path(s)), true, err
	case resolvedPathType:
		s, err := toPathString(v)
		if err != nil {
			return reflect.Value{}, true, err
		}
		dir, err := st.resolveDir()
		if err != nil {
			return reflect.Value{}, true, err
		}
		return reflect.ValueOf(ResolvedPath(ResolvePath(dir, s))), true, nil
	case urlType:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, true, fmt.Errorf("invalid type %T; expected string", v)
		}
		u, err := url.Parse(s)
		if err != nil {
			return reflect.Value{}, true, err
		}
		return reflect.ValueOf(*u), true, nil
	case ipType:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, true, fmt.Errorf("invalid type %T; expected string", v)
		}
		ip := net.ParseIP(strings.TrimSpace(s))
		if ip == nil {
			return reflect.Value{}, true, fmt.Errorf("invalid IP address: %q", s)
		}
		return reflect.ValueOf(ip), true, nil
	case uuidType:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, true, fmt.Errorf("invalid type %T; expected string", v)
		}
		id, err := uuid.Parse(s)
		return reflect.ValueOf(id), true, err
	case bytesType:
		if s, ok := v.(string); ok {
			return reflect.ValueOf([]byte(s)), true, nil
		}
		return reflect.Value{}, false, nil
	}

	if s, ok := v.(string); ok && reflect.PointerTo(t).Implements(textUnmarshalerType) && t.Kind() != reflect.String {
		p := reflect.New(t)
		if err := p.Interface().(interface{ UnmarshalText([]byte) error }).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, true, err
		}
		return p.Elem(), true, nil
	}

	return reflect.Value{}, false, nil
}

// ResolvePath makes p absolute relative to dir and cleans it.
func ResolvePath(dir, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return filepath.Clean(p)
}

// collectionItems returns the elements of a list-like input, splitting
// strings with the string-to-list hook.
func (c *Converter) collectionItems(v any) ([]any, error) {
	if s, ok := v.(string); ok {
		if c.strList == nil {
			return nil, fmt.Errorf("cannot convert string %q to a collection: no string-to-list hook registered", s)
		}
		return c.strList(s)
	}

	if v == nil {
		return nil, errors.New("cannot convert nil to a collection")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Map:
		if rv.Type().Elem() == emptyStructType {
			items := make([]any, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				items = append(items, k.Interface())
			}
			return items, nil
		}
	}
	return nil, fmt.Errorf("invalid type %T; expected a list", v)
}

func (c *Converter) structureSlice(v any, t reflect.Type, st convState) (reflect.Value, error) {
	items, err := c.collectionItems(v)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(t, len(items), len(items))
	for i, item := range items {
		elem, err := c.structure(item, t.Elem(), st)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		out.Index(i).Set(elem)
	}
	return out, nil
}

// structureArray converts fixed size tuples; the input must have exactly t.Len() elements.
func (c *Converter) structureArray(v any, t reflect.Type, st convState) (reflect.Value, error) {
	items, err := c.collectionItems(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(items) != t.Len() {
		return reflect.Value{}, fmt.Errorf("value must have %d elements but has %d", t.Len(), len(items))
	}
	out := reflect.New(t).Elem()
	for i, item := range items {
		elem, err := c.structure(item, t.Elem(), st)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		out.Index(i).Set(elem)
	}
	return out, nil
}

func (c *Converter) structureSet(v any, t reflect.Type, st convState) (reflect.Value, error) {
	items, err := c.collectionItems(v)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMapWithSize(t, len(items))
	present := reflect.New(emptyStructType).Elem()
	for _, item := range items {
		key, err := c.structure(item, t.Key(), st)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %v: %w", item, err)
		}
		out.SetMapIndex(key, present)
	}
	return out, nil
}

func (c *Converter) structureMap(v any, t reflect.Type, st convState) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, errors.New("cannot convert nil to a dict")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return reflect.Value{}, fmt.Errorf("invalid type %T; expected a dict", v)
	}
	out := reflect.MakeMapWithSize(t, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := c.structure(iter.Key().Interface(), t.Key(), st)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
		}
		val, err := c.structure(iter.Value().Interface(), t.Elem(), st)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
		}
		out.SetMapIndex(k, val)
	}
	return out, nil
}

// structureSettings builds a settings struct from a dict of option names.
// Missing fields get their default; factories are called here.
func (c *Converter) structureSettings(v any, t reflect.Type, st convState) (reflect.Value, error) {
	data, err := stringKeyedMap(v)
	if err != nil {
		return reflect.Value{}, err
	}
	provider, ok := ProviderFor(t)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: cannot handle type %s", ErrSchema, t)
	}
	fields, err := provider.Fields(t)
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(t).Elem()
	var errs []error
	for _, f := range fields {
		raw, present := data[f.Name]
		var val reflect.Value

		switch {
		case f.Nested:
			if !present {
				raw = map[string]any{}
			}
			val, err = c.structure(raw, f.Type, st)
		case present && f.Converter != nil && !st.typed:
			var converted any
			converted, err = f.Converter(raw)
			if err == nil {
				val, err = c.structure(converted, f.Type, st)
			}
		case present:
			val, err = c.structure(raw, f.Type, st)
		default:
			val, err = c.structureDefault(f, st)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		out.FieldByIndex(f.Index).Set(val)
	}

	if len(errs) > 0 {
		return reflect.Value{}, errors.Join(errs...)
	}
	return out, nil
}

func (c *Converter) structureDefault(f Field, st convState) (reflect.Value, error) {
	switch f.Default.Kind() {
	case DefaultValue:
		v, _ := f.Default.Value()
		if f.Converter != nil && v != nil {
			converted, err := f.Converter(v)
			if err != nil {
				return reflect.Value{}, err
			}
			v = converted
		}
		return c.structure(v, f.Type, st)
	case DefaultFactory:
		fn, _ := f.Default.Factory()
		return c.structure(fn(), f.Type, st)
	default:
		return reflect.Value{}, errors.New("missing required field")
	}
}

func stringKeyedMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	if v == nil {
		return nil, errors.New("cannot convert nil to settings")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("invalid type %T; expected a dict", v)
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return m, nil
}
