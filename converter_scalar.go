package typedconf

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	trueValues  = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true, "on": true}
	falseValues = map[string]bool{"0": true, "false": true, "f": true, "no": true, "n": true, "off": true}
)

// ToBool converts bools, the integers 1 and 0 and the (case-insensitive)
// strings "1", "true", "t", "yes", "y", "on" and "0", "false", "f", "no",
// "n", "off".
func ToBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		s := strings.ToLower(val)
		if trueValues[s] {
			return true, nil
		}
		if falseValues[s] {
			return false, nil
		}
	case json.Number:
		return ToBool(val.String())
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			if n := rv.Int(); n == 0 || n == 1 {
				return n == 1, nil
			}
		case rv.CanUint():
			if n := rv.Uint(); n == 0 || n == 1 {
				return n == 1, nil
			}
		}
	}
	return false, fmt.Errorf("cannot convert %#v to bool", v)
}

var timeLayouts = buildTimeLayouts()

func buildTimeLayouts() []string {
	layouts := []string{"2006-01-02"}
	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04", "15:04:05", "15:04:05.999999999"} {
			for _, zone := range []string{"", "Z07:00", "-0700"} {
				layouts = append(layouts, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return layouts
}

// ToTime converts ISO 8601 strings to time.Time. A trailing "Z" is accepted
// for UTC. Values without a zone are returned in UTC.
func ToTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if strings.HasSuffix(s, "Z") {
			s = strings.TrimSuffix(s, "Z") + "+00:00"
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid isoformat string: %q", val)
	default:
		return time.Time{}, fmt.Errorf("invalid type %T; expected time.Time or string", v)
	}
}

// ToDuration converts strings like "1h30m" to time.Duration.
func ToDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		return time.ParseDuration(strings.TrimSpace(val))
	default:
		return 0, fmt.Errorf("invalid type %T; expected time.Duration or string", v)
	}
}

// ToEnum looks up value by member name.
func ToEnum[E any](v any, members map[string]E) (E, error) {
	var zero E
	name, ok := v.(string)
	if !ok {
		return zero, fmt.Errorf("%w: invalid type %T; expected member name", ErrUnknownEnumMember, v)
	}
	member, ok := members[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q is not a member of %s", ErrUnknownEnumMember, name, typeName(reflect.TypeOf((*E)(nil)).Elem()))
	}
	return member, nil
}

func toEnumValue(v any, t reflect.Type, members map[string]any) (any, error) {
	name, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid type %T; expected member name", ErrUnknownEnumMember, v)
	}
	member, ok := members[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a member of %s", ErrUnknownEnumMember, name, typeName(t))
	}
	return member, nil
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case json.Number:
		return val.Int64()
	case bool:
		return 0, fmt.Errorf("cannot convert bool to int")
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("cannot convert non-integral float %v to int", f)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v overflows int64", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("invalid type %T; expected an integer", v)
}

func toInt(v any, t reflect.Type) (reflect.Value, error) {
	n, err := toInt64(v)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(t).Elem()
	if out.OverflowInt(n) {
		return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, t)
	}
	out.SetInt(n)
	return out, nil
}

func toUint(v any, t reflect.Type) (reflect.Value, error) {
	var u uint64
	if s, ok := v.(string); ok {
		parsed, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		u = parsed
	} else if rv := reflect.ValueOf(v); rv.CanUint() {
		u = rv.Uint()
	} else {
		n, err := toInt64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < 0 {
			return reflect.Value{}, fmt.Errorf("value %d is negative", n)
		}
		u = uint64(n)
	}

	out := reflect.New(t).Elem()
	if out.OverflowUint(u) {
		return reflect.Value{}, fmt.Errorf("value %d overflows %s", u, t)
	}
	out.SetUint(u)
	return out, nil
}

func toFloat(v any, t reflect.Type) (reflect.Value, error) {
	var f float64
	switch val := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return reflect.Value{}, err
		}
		f = parsed
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return reflect.Value{}, err
		}
		f = parsed
	case bool:
		return reflect.Value{}, fmt.Errorf("cannot convert bool to float")
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanFloat():
			f = rv.Float()
		case rv.CanInt():
			f = float64(rv.Int())
		case rv.CanUint():
			f = float64(rv.Uint())
		default:
			return reflect.Value{}, fmt.Errorf("invalid type %T; expected a number", v)
		}
	}

	out := reflect.New(t).Elem()
	if out.OverflowFloat(f) {
		return reflect.Value{}, fmt.Errorf("value %v overflows %s", f, t)
	}
	out.SetFloat(f)
	return out, nil
}

// toString accepts strings and scalars; containers are rejected.
func toString(v any) (string, error) {
	if v == nil {
		return "", fmt.Errorf("cannot convert nil to string")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("invalid type %T; expected a string", v)
}

func toPathString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case Path:
		return string(val), nil
	case ResolvedPath:
		return string(val), nil
	}
	return "", fmt.Errorf("invalid type %T; expected a path string", v)
}
