package pflagcli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Azhovan/typedconf"
)

type valueKind int

const (
	kindScalar valueKind = iota
	kindBool
	kindList
	kindMap
)

// value collects the raw command line input of one option. Conversion is left
// to the settings converter.
type value struct {
	kind     valueKind
	typeName string
	scalar   string
	list     []any
	dict     map[string]any
}

func newValue(o typedconf.OptionInfo) *value {
	t := o.Type
	for isWrapper(t) {
		t = t.Field(0).Type
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := &value{kind: kindScalar, typeName: typeLabel(t)}
	switch {
	case t.Kind() == reflect.Bool:
		v.kind = kindBool
	case t.Kind() == reflect.Map && t.Elem() == reflect.TypeOf(struct{}{}):
		v.kind = kindList
	case t.Kind() == reflect.Map:
		v.kind = kindMap
	case (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() != reflect.Uint8:
		v.kind = kindList
	}
	return v
}

// isWrapper reports whether t is typedconf.Optional[X].
func isWrapper(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.PkgPath() == reflect.TypeOf(typedconf.Optional[int]{}).PkgPath() &&
		strings.HasPrefix(t.Name(), "Optional[")
}

func typeLabel(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if t.String() == "time.Duration" {
			return "duration"
		}
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "key=value"
	default:
		return "string"
	}
}

// String implements pflag.Value.
func (v *value) String() string {
	switch v.kind {
	case kindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	case kindMap:
		parts := make([]string, 0, len(v.dict))
		for k, item := range v.dict {
			parts = append(parts, fmt.Sprintf("%s=%v", k, item))
		}
		return strings.Join(parts, ",")
	default:
		return v.scalar
	}
}

// Set implements pflag.Value. List and map flags may be repeated.
func (v *value) Set(s string) error {
	switch v.kind {
	case kindList:
		v.list = append(v.list, s)
	case kindMap:
		key, item, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid value %q: expected key=value", s)
		}
		if v.dict == nil {
			v.dict = make(map[string]any)
		}
		v.dict[key] = item
	case kindBool:
		if _, err := typedconf.ToBool(s); err != nil {
			return err
		}
		v.scalar = s
	default:
		v.scalar = s
	}
	return nil
}

// Type implements pflag.Value.
func (v *value) Type() string {
	return v.typeName
}

func (v *value) raw() any {
	switch v.kind {
	case kindList:
		return v.list
	case kindMap:
		return v.dict
	default:
		return v.scalar
	}
}

// negation sets the bool option it belongs to to false.
type negation struct {
	target *value
}

func (n *negation) String() string { return "" }

func (n *negation) Set(s string) error {
	neg, err := typedconf.ToBool(s)
	if err != nil {
		return err
	}
	if neg {
		n.target.scalar = "false"
	} else {
		n.target.scalar = "true"
	}
	return nil
}

func (n *negation) Type() string { return "bool" }
