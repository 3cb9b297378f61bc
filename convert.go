package typedconf

import (
	"fmt"
	"reflect"
)

// Convert turns merged option values into a T.
//
// Every option is converted on its own so that all failures are reported
// together, each with its path and the source that supplied the value.
// Relative ResolvedPath values are resolved against their source's BaseDir.
// Only when every option converts is the settings instance built, with
// missing options taking their defaults. Finally `validate` struct tags run.
func Convert[T any](merged MergedSettings, options OptionList, conv *Converter) (*T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	v, err := ConvertTo(merged, t, options, conv)
	if err != nil {
		return nil, err
	}
	out := new(T)
	reflect.ValueOf(out).Elem().Set(v)
	return out, nil
}

// ConvertTo is the non-generic form of Convert.
func ConvertTo(merged MergedSettings, t reflect.Type, options OptionList, conv *Converter) (reflect.Value, error) {
	if conv == nil {
		conv = DefaultConverter()
	}

	nested := make(map[string]any)
	var fieldErrors []FieldError
	for _, o := range options {
		lv, ok := merged[o.Path]
		if !ok {
			if o.Default.IsRequired() {
				fieldErrors = append(fieldErrors, FieldError{
					Path:    o.Path,
					Code:    ErrCodeRequired,
					Message: "no value set for required option",
				})
			}
			continue
		}

		val, err := convertOption(conv, o, lv)
		if err != nil {
			fieldErrors = append(fieldErrors, conversionFieldError(o, lv, err))
			continue
		}
		SetPath(nested, o.Path, val.Interface())
	}

	if len(fieldErrors) > 0 {
		return reflect.Value{}, &InvalidSettingsError{Settings: t, FieldErrors: fieldErrors}
	}

	out, err := conv.structure(nested, t, convState{typed: true})
	if err != nil {
		return reflect.Value{}, &InvalidSettingsError{Settings: t, FieldErrors: []FieldError{{
			Code:    ErrCodeStructure,
			Message: err.Error(),
			Err:     &ConversionError{Value: SecretRepr, Target: t, Err: err},
		}}}
	}

	if fieldErrors := validateSettings(out, options); len(fieldErrors) > 0 {
		for i := range fieldErrors {
			if lv, ok := merged[fieldErrors[i].Path]; ok {
				fieldErrors[i].Source = lv.Meta.Name
			}
		}
		return reflect.Value{}, &InvalidSettingsError{Settings: t, FieldErrors: fieldErrors}
	}

	return out, nil
}

// convertOption converts a loaded value to the option's type. The result of a
// field converter is converted too, so a converter may return raw values.
func convertOption(conv *Converter, o OptionInfo, lv LoadedValue) (reflect.Value, error) {
	st := convState{baseDir: lv.Meta.BaseDir}
	v := lv.Value
	if o.Converter != nil {
		converted, err := o.Converter(v)
		if err != nil {
			return reflect.Value{}, err
		}
		v = converted
		st.typed = true
	}
	return conv.structure(v, o.Type, st)
}

// conversionFieldError builds the report entry for a failed option. Secret
// values and causes that may quote them are kept out of the message.
func conversionFieldError(o OptionInfo, lv LoadedValue, err error) FieldError {
	fe := FieldError{
		Path:   o.Path,
		Source: lv.Meta.Name,
		Code:   ErrCodeInvalidType,
	}
	if o.Secret {
		fe.Message = fmt.Sprintf("could not convert value %q to %s", SecretRepr, typeName(o.Type))
		fe.Err = &ConversionError{Value: SecretRepr, Target: o.Type, Err: err}
		return fe
	}
	fe.Message = fmt.Sprintf("could not convert value %#v to %s: %v", lv.Value, typeName(o.Type), err)
	fe.Err = &ConversionError{Value: lv.Value, Target: o.Type, Err: err}
	return fe
}

// Update returns a copy of cfg with the option at path set to value.
// value is converted like a value loaded from a source in the working directory.
func Update[T any](cfg *T, path string, value any, conv *Converter) (*T, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if conv == nil {
		conv = DefaultConverter()
	}
	options, err := OptionsFor[T]()
	if err != nil {
		return nil, err
	}
	o, ok := options.Lookup(path)
	if !ok {
		return nil, &InvalidOptionsError{Source: "update", Paths: []string{path}}
	}

	lv := LoadedValue{Value: value, Meta: NewSourceMeta("update")}
	rv, err := convertOption(conv, o, lv)
	if err != nil {
		fe := conversionFieldError(o, lv, err)
		return nil, &InvalidSettingsError{Settings: reflect.TypeOf(cfg).Elem(), FieldErrors: []FieldError{fe}}
	}

	out := new(T)
	*out = *cfg
	reflect.ValueOf(out).Elem().FieldByIndex(o.FieldIndex).Set(rv)
	return out, nil
}
