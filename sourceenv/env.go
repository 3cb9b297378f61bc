package sourceenv

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Azhovan/typedconf"
	"github.com/Azhovan/typedconf/internal/normalize"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix is prepended to every variable name (e.g., "MYAPP_").
	Prefix string

	// Environ is the environment to read. Default: the process environment.
	Environ typedconf.Environ

	// Logger receives one debug event per lookup. The zero value logs nothing.
	Logger zerolog.Logger
}

type envSource struct {
	opts Options
}

// New creates an environment variable source.
//
// The variable of an option is the prefix followed by the upper-cased option
// path with dots replaced by underscores: option "host.port" with prefix
// "MYAPP_" reads MYAPP_HOST_PORT. Values are returned as strings.
func New(opts Options) typedconf.Source {
	if opts.Environ == nil {
		opts.Environ = typedconf.OSEnviron{}
	}
	return &envSource{opts: opts}
}

// VarName returns the environment variable read for an option path.
func VarName(prefix, path string) string {
	return normalize.EnvVar(prefix, path)
}

// Load looks up the variable of every option.
func (e *envSource) Load(_ context.Context, options typedconf.OptionList) ([]typedconf.LoadedSettings, error) {
	settings := make(map[string]any)

	for _, o := range options {
		name := VarName(e.opts.Prefix, o.Path)
		value, ok := e.opts.Environ.LookupEnv(name)
		if !ok {
			e.opts.Logger.Debug().Str("var", name).Msg("env var not found")
			continue
		}
		e.opts.Logger.Debug().Str("var", name).Msg("env var found")
		typedconf.SetPath(settings, o.Path, value)
	}

	return []typedconf.LoadedSettings{{Settings: settings, Meta: typedconf.NewSourceMeta("env")}}, nil
}
