package typedconf

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Error kinds. Use errors.Is to classify errors returned by this package.
var (
	// ErrSchema is returned when a type cannot be introspected as settings.
	ErrSchema = errors.New("typedconf: invalid settings schema")

	// ErrConfigFileNotFound is returned when a mandatory config file does not exist.
	ErrConfigFileNotFound = errors.New("typedconf: config file not found")

	// ErrConfigFileLoad is returned when a config file exists but cannot be read or parsed.
	ErrConfigFileLoad = errors.New("typedconf: config file cannot be loaded")

	// ErrUnknownFormat is returned when no format is configured for a config file.
	ErrUnknownFormat = errors.New("typedconf: no format configured for config file")

	// ErrInvalidStrListHook is returned when a string-to-list hook is misconfigured.
	ErrInvalidStrListHook = errors.New("typedconf: pass either a separator or a split function")

	// ErrUnknownEnumMember is returned when a value names no member of an enum.
	ErrUnknownEnumMember = errors.New("typedconf: unknown enum member")

	// ErrNilConfig is returned when a nil settings instance is passed.
	ErrNilConfig = errors.New("typedconf: config is nil")
)

// Error codes for aggregated settings failures.
const (
	ErrCodeRequired    = "required"
	ErrCodeInvalidType = "invalid_type"
	ErrCodeValidation  = "validation"
	ErrCodeStructure   = "structure"
)

// UnresolvedTypeError reports a type reference that cannot be resolved while
// introspecting a settings type.
type UnresolvedTypeError struct {
	Settings reflect.Type // Settings type whose fields were resolved
	Field    string       // Go field path of the offending field (e.g., "Tree.Child")
	Name     string       // Name of the unresolved type
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("name %q is not defined: cannot resolve type of field %s in %s", e.Name, e.Field, typeName(e.Settings))
}

func (e *UnresolvedTypeError) Unwrap() error {
	return ErrSchema
}

// InvalidOptionsError lists every key of one source that is not an option path.
type InvalidOptionsError struct {
	Source string
	Paths  []string
}

func (e *InvalidOptionsError) Error() string {
	paths := append([]string(nil), e.Paths...)
	sort.Strings(paths)
	return fmt.Sprintf("invalid options found in %s: %s", e.Source, strings.Join(paths, ", "))
}

// ConversionError reports a value that cannot be coerced into a target type.
type ConversionError struct {
	Value  any
	Target reflect.Type
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot convert %#v to %s", e.Value, typeName(e.Target))
	}
	return fmt.Sprintf("cannot convert %#v to %s: %v", e.Value, typeName(e.Target), e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// InvalidSettingsError aggregates every failure found while converting loaded
// option values into a settings instance.
type InvalidSettingsError struct {
	Settings    reflect.Type
	FieldErrors []FieldError
}

// Error formats the failures as a multi-line message.
func (e *InvalidSettingsError) Error() string {
	if len(e.FieldErrors) == 0 {
		return "settings conversion failed: no errors"
	}

	var b strings.Builder
	if len(e.FieldErrors) == 1 {
		fmt.Fprintf(&b, "1 error occurred while converting the loaded option values to an instance of %q\n", typeName(e.Settings))
	} else {
		fmt.Fprintf(&b, "%d errors occurred while converting the loaded option values to an instance of %q\n", len(e.FieldErrors), typeName(e.Settings))
	}

	for _, fe := range e.FieldErrors {
		if fe.Source != "" {
			fmt.Fprintf(&b, "  - %s: %s (%s) [source: %s]\n", fe.Path, fe.Code, fe.Message, fe.Source)
		} else {
			fmt.Fprintf(&b, "  - %s: %s (%s)\n", fe.Path, fe.Code, fe.Message)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// Unwrap returns the underlying causes of the failures.
func (e *InvalidSettingsError) Unwrap() []error {
	var errs []error
	for _, fe := range e.FieldErrors {
		if fe.Err != nil {
			errs = append(errs, fe.Err)
		}
	}
	return errs
}

// Paths returns the option paths of all failures in report order.
func (e *InvalidSettingsError) Paths() []string {
	paths := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		paths[i] = fe.Path
	}
	return paths
}

// FieldError represents a single option failure.
type FieldError struct {
	Path    string // Dotted option path (e.g., "host.port")
	Source  string // Source that produced the value, empty if no source did
	Code    string // Error code (e.g., "required", "invalid_type")
	Message string // Human-readable description
	Err     error  // Underlying cause, if any
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
