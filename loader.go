package typedconf

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// Loader loads settings of type T from multiple sources.
// Sources are processed in order (later override earlier); the defaults of
// T always come first. Not safe for concurrent configuration changes.
type Loader[T any] struct {
	sources    []Source
	processors []Processor
	validators []Validator[T]
	converter  *Converter
	logger     zerolog.Logger
}

// NewLoader creates a Loader with no sources and the default converter.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{
		converter: DefaultConverter(),
		logger:    zerolog.Nop(),
	}
}

// WithSource adds a source. Sources are processed in order (later override earlier).
func (l *Loader[T]) WithSource(src Source) *Loader[T] {
	l.sources = append(l.sources, src)
	return l
}

// WithProcessor adds a processor applied to the merged settings before conversion.
func (l *Loader[T]) WithProcessor(p Processor) *Loader[T] {
	l.processors = append(l.processors, p)
	return l
}

// WithValidator adds a custom validator (executed after tag-based validation).
func (l *Loader[T]) WithValidator(v Validator[T]) *Loader[T] {
	l.validators = append(l.validators, v)
	return l
}

// WithConverter replaces the converter.
func (l *Loader[T]) WithConverter(c *Converter) *Loader[T] {
	if c != nil {
		l.converter = c
	}
	return l
}

// WithLogger sets the logger used for pipeline events.
func (l *Loader[T]) WithLogger(logger zerolog.Logger) *Loader[T] {
	l.logger = logger
	return l
}

// Options returns the options of T.
func (l *Loader[T]) Options() (OptionList, error) {
	return OptionsFor[T]()
}

// Load runs the pipeline: collect options, load every source, merge by
// precedence, run processors, convert and validate.
// Returns *InvalidSettingsError with every option failure.
func (l *Loader[T]) Load(ctx context.Context) (*T, error) {
	options, err := OptionsFor[T]()
	if err != nil {
		return nil, err
	}

	sources := append([]Source{DefaultsSource{}}, l.sources...)
	var loaded []LoadedSettings
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		settings, err := src.Load(ctx, options)
		if err != nil {
			return nil, fmt.Errorf("load source %d (%T): %w", i, src, err)
		}
		for _, ls := range settings {
			l.logger.Debug().Str("source", ls.Meta.Name).Int("keys", len(ls.Settings)).Msg("settings loaded")
		}
		loaded = append(loaded, settings...)
	}

	merged := MergeSettings(options, loaded)

	if len(l.processors) > 0 {
		nested := Flat2Nested(merged)
		for _, p := range l.processors {
			nested, err = p.Process(ctx, nested, options)
			if err != nil {
				return nil, fmt.Errorf("process settings: %w", err)
			}
		}
		merged = UpdateSettings(merged, nested)
	}

	cfg, err := Convert[T](merged, options, l.converter)
	if err != nil {
		return nil, err
	}

	var fieldErrors []FieldError
	for i, v := range l.validators {
		if err := v.Validate(ctx, cfg); err != nil {
			if invalid, ok := err.(*InvalidSettingsError); ok {
				fieldErrors = append(fieldErrors, invalid.FieldErrors...)
				continue
			}
			return nil, fmt.Errorf("validator %d failed: %w", i, err)
		}
	}
	if len(fieldErrors) > 0 {
		return nil, &InvalidSettingsError{Settings: reflect.TypeOf(cfg).Elem(), FieldErrors: fieldErrors}
	}

	storeProvenance(cfg, buildProvenance(options, merged))
	l.logger.Debug().Str("settings", typeName(reflect.TypeOf(cfg).Elem())).Msg("settings converted")
	return cfg, nil
}
