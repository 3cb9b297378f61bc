package sourcefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Azhovan/typedconf"
	"github.com/Azhovan/typedconf/internal/normalize"
)

// Options configures file source behavior.
type Options struct {
	// Files are loaded in order; later files take precedence. A leading "!"
	// marks a file as mandatory. Missing optional files are skipped.
	Files []string

	// EnvVar names an environment variable holding more files separated by
	// ":". They are loaded after Files. Empty disables the lookup.
	EnvVar string

	// Formats maps glob patterns matched against the file name to formats.
	// Patterns are tried in lexical order. Default: DefaultFormats("").
	Formats map[string]Format

	// Environ is used to read EnvVar. Default: the process environment.
	Environ typedconf.Environ

	// Logger receives file discovery events. The zero value logs nothing.
	Logger zerolog.Logger
}

type fileSource struct {
	opts Options
}

// New creates a config file source. Each loaded file yields its own
// LoadedSettings whose base directory is the file's directory.
func New(opts Options) typedconf.Source {
	if opts.Formats == nil {
		opts.Formats = DefaultFormats("")
	}
	if opts.Environ == nil {
		opts.Environ = typedconf.OSEnviron{}
	}
	return &fileSource{opts: opts}
}

// Load resolves the configured files, then parses and cleans them in order.
func (f *fileSource) Load(ctx context.Context, options typedconf.OptionList) ([]typedconf.LoadedSettings, error) {
	paths, err := f.configFiles()
	if err != nil {
		return nil, err
	}

	var loaded []typedconf.LoadedSettings
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		settings, err := f.loadFile(path, options)
		if err != nil {
			return nil, err
		}
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
		}
		loaded = append(loaded, typedconf.LoadedSettings{
			Settings: settings,
			Meta:     typedconf.SourceMeta{Name: "file:" + path, BaseDir: dir},
		})
	}
	return loaded, nil
}

type candidate struct {
	name      string
	mandatory bool
	fromEnv   bool
}

// configFiles returns the existing files to load: explicit files first, then
// files from the env var.
func (f *fileSource) configFiles() ([]string, error) {
	candidates := make([]candidate, 0, len(f.opts.Files))
	for _, name := range f.opts.Files {
		candidates = append(candidates, candidate{name: name})
	}

	if f.opts.EnvVar != "" {
		f.opts.Logger.Debug().Str("var", f.opts.EnvVar).Msg("env var for config files")
		value, _ := f.opts.Environ.LookupEnv(f.opts.EnvVar)
		for _, name := range strings.Split(value, ":") {
			candidates = append(candidates, candidate{name: name, fromEnv: true})
		}
	} else {
		f.opts.Logger.Debug().Msg("env var for config files not set")
	}

	var paths []string
	for _, c := range candidates {
		name, mandatory := strings.CutPrefix(c.name, "!")
		if name == "" {
			continue
		}
		c.mandatory = mandatory

		if _, err := os.Stat(name); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, name, err)
			}
			switch {
			case c.mandatory:
				f.opts.Logger.Error().Str("file", name).Msg("mandatory config file not found")
				return nil, fmt.Errorf("%w: %s", typedconf.ErrConfigFileNotFound, name)
			case c.fromEnv:
				f.opts.Logger.Warn().Str("file", name).Str("var", f.opts.EnvVar).Msg("config file from env var not found")
			default:
				f.opts.Logger.Info().Str("file", name).Msg("config file not found")
			}
			continue
		}

		f.opts.Logger.Debug().Str("file", name).Msg("loading settings from file")
		paths = append(paths, name)
	}
	return paths, nil
}

func (f *fileSource) loadFile(path string, options typedconf.OptionList) (map[string]any, error) {
	format, err := f.formatFor(path)
	if err != nil {
		return nil, err
	}
	doc, err := format.Parse(path)
	if err != nil {
		return nil, err
	}
	return Clean(doc, options, "file:"+path)
}

func (f *fileSource) formatFor(path string) (Format, error) {
	patterns := make([]string, 0, len(f.opts.Formats))
	for pattern := range f.opts.Formats {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	base := filepath.Base(path)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return f.opts.Formats[pattern], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", typedconf.ErrUnknownFormat, path)
}

// Clean maps the keys of a parsed document to option paths. Dashes in keys
// become underscores; if two keys map to the same option, the one written
// later in the file wins. Every key that is not an option path is reported
// in one *typedconf.InvalidOptionsError.
func Clean(doc Document, options typedconf.OptionList, source string) (map[string]any, error) {
	valid := options.PathSet()
	cleaned := make(map[string]any)
	var invalid []string

	var walk func(d map[string]any, rawPrefix, prefix string)
	walk = func(d map[string]any, rawPrefix, prefix string) {
		for _, rawKey := range orderedKeys(d, rawPrefix, doc.Order) {
			val := d[rawKey]
			path := prefix + normalize.Key(rawKey)

			if valid[path] {
				typedconf.SetPath(cleaned, path, val)
				continue
			}
			if sub, ok := val.(map[string]any); ok {
				walk(sub, rawPrefix+rawKey+".", path+".")
				continue
			}
			invalid = append(invalid, path)
		}
	}
	walk(doc.Data, "", "")

	if len(invalid) > 0 {
		return nil, &typedconf.InvalidOptionsError{Source: source, Paths: invalid}
	}
	return cleaned, nil
}

// orderedKeys returns the keys of d in file order. Keys without a known
// position follow in lexical order.
func orderedKeys(d map[string]any, rawPrefix string, order map[string]int) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, oki := order[rawPrefix+keys[i]]
		pj, okj := order[rawPrefix+keys[j]]
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
