// Package app loads settings with the conventional source setup of an
// application: defaults, then config files, then environment variables, then
// any extra sources such as command line flags.
//
// For an application named "myapp" the files are read from the [myapp]
// section, more files can be listed in MYAPP_SETTINGS, and the option
// "host.port" is read from MYAPP_HOST_PORT.
package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Azhovan/typedconf"
	"github.com/Azhovan/typedconf/sourceenv"
	"github.com/Azhovan/typedconf/sourcefile"
)

// Option configures Load.
type Option func(*config)

type config struct {
	files      []string
	section    *string
	filesVar   *string
	envPrefix  *string
	noEnv      bool
	formats    map[string]sourcefile.Format
	environ    typedconf.Environ
	logger     zerolog.Logger
	converter  *typedconf.Converter
	processors []typedconf.Processor
	sources    []typedconf.Source
}

// WithConfigFiles sets the config files to load. Prefix a file with "!" to make it mandatory.
func WithConfigFiles(files ...string) Option {
	return func(cfg *config) {
		cfg.files = append(cfg.files, files...)
	}
}

// WithConfigFileSection sets the section read from config files. Default: the app name.
func WithConfigFileSection(section string) Option {
	return func(cfg *config) {
		cfg.section = &section
	}
}

// WithConfigFilesVar sets the env var listing more config files. Default:
// "{APPNAME}_SETTINGS". An empty name disables the lookup.
func WithConfigFilesVar(name string) Option {
	return func(cfg *config) {
		cfg.filesVar = &name
	}
}

// WithEnvPrefix sets the prefix of option env vars. Default: "{APPNAME}_".
func WithEnvPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.envPrefix = &prefix
	}
}

// WithoutEnv disables loading option values from env vars.
func WithoutEnv() Option {
	return func(cfg *config) {
		cfg.noEnv = true
	}
}

// WithFormats replaces the config file formats.
func WithFormats(formats map[string]sourcefile.Format) Option {
	return func(cfg *config) {
		cfg.formats = formats
	}
}

// WithEnviron sets the environment used for env vars. Default: the process environment.
func WithEnviron(env typedconf.Environ) Option {
	return func(cfg *config) {
		cfg.environ = env
	}
}

// WithLogger sets the logger passed to all sources.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithConverter sets the converter.
func WithConverter(c *typedconf.Converter) Option {
	return func(cfg *config) {
		cfg.converter = c
	}
}

// WithProcessors adds processors applied before conversion.
func WithProcessors(processors ...typedconf.Processor) Option {
	return func(cfg *config) {
		cfg.processors = append(cfg.processors, processors...)
	}
}

// WithSources adds sources with a higher precedence than env vars.
func WithSources(sources ...typedconf.Source) Option {
	return func(cfg *config) {
		cfg.sources = append(cfg.sources, sources...)
	}
}

// DefaultEnvPrefix returns the env var prefix derived from an app name.
func DefaultEnvPrefix(appname string) string {
	return strings.ToUpper(strings.ReplaceAll(appname, "-", "_")) + "_"
}

// DefaultFilesVar returns the name of the config files env var derived from an app name.
func DefaultFilesVar(appname string) string {
	return DefaultEnvPrefix(appname) + "SETTINGS"
}

// NewLoader returns a typedconf.Loader with the conventional sources of
// appname. Use it to add validators before loading.
func NewLoader[T any](appname string, opts ...Option) *typedconf.Loader[T] {
	cfg := config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.environ == nil {
		cfg.environ = typedconf.OSEnviron{}
	}

	section := appname
	if cfg.section != nil {
		section = *cfg.section
	}
	filesVar := DefaultFilesVar(appname)
	if cfg.filesVar != nil {
		filesVar = *cfg.filesVar
	}
	envPrefix := DefaultEnvPrefix(appname)
	if cfg.envPrefix != nil {
		envPrefix = *cfg.envPrefix
	}
	formats := cfg.formats
	if formats == nil {
		formats = sourcefile.DefaultFormats(section)
	}

	loader := typedconf.NewLoader[T]().
		WithLogger(cfg.logger).
		WithConverter(cfg.converter).
		WithSource(sourcefile.New(sourcefile.Options{
			Files:   cfg.files,
			EnvVar:  filesVar,
			Formats: formats,
			Environ: cfg.environ,
			Logger:  cfg.logger,
		}))

	if !cfg.noEnv {
		loader.WithSource(sourceenv.New(sourceenv.Options{
			Prefix:  envPrefix,
			Environ: cfg.environ,
			Logger:  cfg.logger,
		}))
	}
	for _, src := range cfg.sources {
		loader.WithSource(src)
	}
	for _, p := range cfg.processors {
		loader.WithProcessor(p)
	}
	return loader
}

// Load loads settings of type T for appname.
func Load[T any](ctx context.Context, appname string, opts ...Option) (*T, error) {
	return NewLoader[T](appname, opts...).Load(ctx)
}
