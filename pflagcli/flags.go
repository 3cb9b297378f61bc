// Package pflagcli generates command line flags from settings options and
// loads the flags the user set as a settings source.
//
// Example:
//
//	cmd := &cobra.Command{Use: "myapp"}
//	flags, err := pflagcli.AddFlags[Settings](cmd.Flags())
//	...
//	cfg, err := app.Load[Settings](ctx, "myapp", app.WithSources(flags))
package pflagcli

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Azhovan/typedconf"
	"github.com/Azhovan/typedconf/internal/normalize"
)

// Option configures flag generation.
type Option func(*config)

type config struct {
	defaults typedconf.MergedSettings
	prefix   string
}

// WithDefaults shows values, e.g. from files loaded before parsing the
// command line, as flag defaults instead of the schema defaults.
func WithDefaults(merged typedconf.MergedSettings) Option {
	return func(cfg *config) {
		cfg.defaults = merged
	}
}

// WithPrefix prefixes every generated flag name (e.g., "app-").
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

// Flags is the set of flags generated for one settings type. It is a
// typedconf.Source returning only the flags that were set.
type Flags struct {
	fs       *pflag.FlagSet
	settings reflect.Type
	options  typedconf.OptionList
	names    map[string]string // option path -> flag name
	negated  map[string]string // option path -> "no-" flag name of bool options
	values   map[string]*value // option path -> value
}

// AddFlags registers one flag per option of T on fs.
func AddFlags[T any](fs *pflag.FlagSet, opts ...Option) (*Flags, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	options, err := typedconf.OptionsFor[T]()
	if err != nil {
		return nil, err
	}

	f := &Flags{
		fs:       fs,
		settings: reflect.TypeOf((*T)(nil)).Elem(),
		options:  options,
		names:    make(map[string]string, len(options)),
		negated:  make(map[string]string),
		values:   make(map[string]*value, len(options)),
	}

	for _, o := range options {
		name := cfg.prefix + FlagName(o)
		v := newValue(o)

		flag := fs.VarPF(v, name, o.Metadata["short"], helpText(o))
		flag.DefValue = defaultText(o, cfg.defaults)
		if v.kind == kindBool {
			flag.NoOptDefVal = "true"
			neg := fs.VarPF(&negation{target: v}, "no-"+name, "", "")
			neg.NoOptDefVal = "true"
			neg.Hidden = true
			f.negated[o.Path] = "no-" + name
		}

		f.names[o.Path] = name
		f.values[o.Path] = v
	}

	return f, nil
}

// FlagName returns the flag name of an option: the "flag" metadata or the
// path with dots and underscores replaced by dashes.
func FlagName(o typedconf.OptionInfo) string {
	if name := o.Metadata["flag"]; name != "" {
		return name
	}
	return normalize.Flag(o.Path)
}

// Load implements typedconf.Source.
func (f *Flags) Load(_ context.Context, options typedconf.OptionList) ([]typedconf.LoadedSettings, error) {
	settings := make(map[string]any)
	for _, o := range options {
		v, ok := f.values[o.Path]
		if !ok {
			continue
		}
		changed := f.fs.Changed(f.names[o.Path])
		if neg, ok := f.negated[o.Path]; ok && f.fs.Changed(neg) {
			changed = true
		}
		if changed {
			typedconf.SetPath(settings, o.Path, v.raw())
		}
	}
	return []typedconf.LoadedSettings{{Settings: settings, Meta: typedconf.NewSourceMeta("cli")}}, nil
}

// Usage writes the flag help grouped by the nested settings type owning the options.
func (f *Flags) Usage(w io.Writer) error {
	groups, err := typedconf.GroupOptions(f.settings, f.options)
	if err != nil {
		return err
	}

	for i, g := range groups {
		title := g.Prefix
		if title == "" {
			title = g.Type.Name()
		}
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
			return err
		}

		groupSet := pflag.NewFlagSet(title, pflag.ContinueOnError)
		for _, o := range g.Options {
			if flag := f.fs.Lookup(f.names[o.Path]); flag != nil {
				groupSet.AddFlag(flag)
			}
		}
		if _, err := io.WriteString(w, groupSet.FlagUsages()); err != nil {
			return err
		}
	}
	return nil
}

func helpText(o typedconf.OptionInfo) string {
	help := o.Metadata["help"]
	if o.Default.IsRequired() {
		if help != "" {
			help += " "
		}
		help += "(required)"
	}
	return help
}

// defaultText is the default shown in help. Secrets are masked.
func defaultText(o typedconf.OptionInfo, defaults typedconf.MergedSettings) string {
	var def any
	if lv, ok := defaults[o.Path]; ok {
		def = lv.Value
	} else if v, ok := o.Default.Value(); ok {
		def = v
	} else if o.Default.Kind() == typedconf.DefaultFactory {
		return "(dynamic)"
	}

	if def == nil {
		return ""
	}
	if o.Secret {
		return typedconf.SecretRepr
	}
	if items, ok := def.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(def)
}
