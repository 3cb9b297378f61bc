package typedconf

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Azhovan/typedconf/internal/normalize"
)

// Validator performs custom validation after conversion and tag-based validation.
// Use for cross-field, semantic, or external validation.
type Validator[T any] interface {
	// Validate checks the settings. Return *InvalidSettingsError for option-level errors.
	Validate(ctx context.Context, cfg *T) error
}

// ValidatorFunc is a function adapter for the Validator interface.
type ValidatorFunc[T any] func(ctx context.Context, cfg *T) error

func (f ValidatorFunc[T]) Validate(ctx context.Context, cfg *T) error {
	return f(ctx, cfg)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report option names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			cfg := parseTag(fld.Tag.Get("conf"))
			if cfg.skip {
				return "-"
			}
			if cfg.name != "" {
				return cfg.name
			}
			return normalize.ToSnake(fld.Name)
		})
	})
	return validate
}

// validateSettings runs `validate` struct tags on v and maps failures to option paths.
func validateSettings(v reflect.Value, options OptionList) []FieldError {
	if v.Kind() != reflect.Pointer {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p
	}

	err := getValidator().Struct(v.Interface())
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Code: ErrCodeValidation, Message: err.Error(), Err: err}}
	}

	byGoPath := goPaths(v.Type().Elem(), options)
	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		path, ok := byGoPath[stripRoot(e.StructNamespace())]
		if !ok {
			path = stripRoot(e.Namespace())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Path:    path,
			Code:    ErrCodeValidation,
			Message: formatValidationError(e),
			Err:     e,
		})
	}
	return fieldErrors
}

// goPaths maps Go field paths ("Host.Port") to option paths ("host.port").
func goPaths(t reflect.Type, options OptionList) map[string]string {
	paths := make(map[string]string, len(options))
	for _, o := range options {
		names := make([]string, 0, len(o.FieldIndex))
		cur := t
		for _, i := range o.FieldIndex {
			f := cur.Field(i)
			names = append(names, f.Name)
			cur = f.Type
		}
		paths[strings.Join(names, ".")] = o.Path
	}
	return paths
}

func stripRoot(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	return rest
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "url":
		return "must be a valid URL"
	case "hostname", "hostname_rfc1123":
		return "must be a valid hostname"
	case "email":
		return "must be a valid email address"
	default:
		return "failed on the '" + e.Tag() + "' rule"
	}
}
