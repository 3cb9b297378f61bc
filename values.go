package typedconf

import (
	"fmt"
	"reflect"
)

// SecretRepr replaces secret values in printed output.
const SecretRepr = "*******"

// leaf is implemented by struct types of this package that hold a single
// option value and therefore are never nested settings.
type leaf interface {
	typedconfLeaf()
}

// SecretStr is a string whose printed form is masked.
// Convert it with string(s) to get the real value.
type SecretStr string

// String masks non-empty secrets.
func (s SecretStr) String() string {
	if s == "" {
		return ""
	}
	return SecretRepr
}

// GoString masks the value for %#v.
func (s SecretStr) GoString() string {
	return fmt.Sprintf("%q", s.String())
}

// MarshalText keeps secrets out of encoders.
func (s SecretStr) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Secret wraps any value and keeps it out of printed output.
// Get must be called explicitly to read the wrapped value.
type Secret[T any] struct {
	value T
}

// NewSecret wraps v.
func NewSecret[T any](v T) Secret[T] {
	return Secret[T]{value: v}
}

// Get returns the wrapped secret value.
func (s Secret[T]) Get() T {
	return s.value
}

// String masks the wrapped value. Empty collections and zero values are shown as is.
func (s Secret[T]) String() string {
	if isEmptyValue(reflect.ValueOf(s.value)) {
		return fmt.Sprint(s.value)
	}
	return SecretRepr
}

// GoString masks the value for %#v.
func (s Secret[T]) GoString() string {
	return fmt.Sprintf("Secret(%q)", s.String())
}

// MarshalText keeps secrets out of encoders.
func (s Secret[T]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (Secret[T]) typedconfLeaf() {}

func (Secret[T]) secretElem() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (s *Secret[T]) setSecret(v any) {
	s.value = v.(T)
}

type secretValue interface {
	secretElem() reflect.Type
}

type secretSetter interface {
	setSecret(v any)
}

// Path is a file system path taken as given.
type Path string

// ResolvedPath is a file system path made absolute at conversion time. Relative
// values are resolved against the base directory of the source that supplied
// them (the process working directory for env vars and CLI flags, the file's
// directory for config files).
type ResolvedPath string

// OneOf holds a value of exactly one of two member types.
type OneOf[A, B any] struct {
	value any
}

// Value returns the held value (an A, a B, or nil).
func (u OneOf[A, B]) Value() any { return u.value }

func (OneOf[A, B]) typedconfLeaf() {}

func (OneOf[A, B]) unionMembers() []reflect.Type {
	return []reflect.Type{reflect.TypeOf((*A)(nil)).Elem(), reflect.TypeOf((*B)(nil)).Elem()}
}

func (u *OneOf[A, B]) setUnion(v any) { u.value = v }

// OneOf3 holds a value of exactly one of three member types.
type OneOf3[A, B, C any] struct {
	value any
}

// Value returns the held value (an A, a B, a C, or nil).
func (u OneOf3[A, B, C]) Value() any { return u.value }

func (OneOf3[A, B, C]) typedconfLeaf() {}

func (OneOf3[A, B, C]) unionMembers() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf((*A)(nil)).Elem(),
		reflect.TypeOf((*B)(nil)).Elem(),
		reflect.TypeOf((*C)(nil)).Elem(),
	}
}

func (u *OneOf3[A, B, C]) setUnion(v any) { u.value = v }

type unionValue interface {
	unionMembers() []reflect.Type
}

type unionSetter interface {
	setUnion(v any)
}

// isSecretType reports whether values of t mask their printed form.
// Optional values and pointers are secret when their element is.
func isSecretType(t reflect.Type) bool {
	for isOptionalType(t) {
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		} else {
			t = t.Field(0).Type
		}
	}
	if t == reflect.TypeOf(SecretStr("")) {
		return true
	}
	return t.Implements(reflect.TypeOf((*secretValue)(nil)).Elem())
}

func isEmptyValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
