package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azhovan/typedconf"
	"github.com/Azhovan/typedconf/sourcefile"
)

type Host struct {
	Name string
	Port int `conf:"default:8080"`
}

type Settings struct {
	URL     string
	Default int `conf:"default:3"`
	Host    Host
	Tags    []string `conf:"default:a"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const exampleTOML = `
[example]
url = "https://example.com"

[example.host]
name = "example.com"
port = 1
`

func TestLoad_FilesThenEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "example.toml", exampleTOML)

	cfg, err := Load[Settings](context.Background(), "example",
		WithConfigFiles(path),
		WithEnviron(typedconf.MapEnviron{"EXAMPLE_HOST_PORT": "42"}),
	)
	require.NoError(t, err)
	assert.Equal(t, &Settings{
		URL:     "https://example.com",
		Default: 3,
		Host:    Host{Name: "example.com", Port: 42},
		Tags:    []string{"a"},
	}, cfg)

	prov, ok := typedconf.GetProvenance(cfg)
	require.True(t, ok)
	fp, _ := prov.Lookup("url")
	assert.Equal(t, "file:"+path, fp.Source)
	fp, _ = prov.Lookup("host.port")
	assert.Equal(t, "env", fp.Source)
	fp, _ = prov.Lookup("default")
	assert.Equal(t, "default", fp.Source)
}

func TestLoad_FilesVar(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "example.toml", exampleTOML)
	second := writeFile(t, dir, "override.yaml", "example:\n  default: 5\n  tags: [x, y]\n")

	env := typedconf.MapEnviron{"EXAMPLE_SETTINGS": second}

	cfg, err := Load[Settings](context.Background(), "example", WithConfigFiles(first), WithEnviron(env))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Default)
	assert.Equal(t, []string{"x", "y"}, cfg.Tags)

	cfg, err = Load[Settings](context.Background(), "example",
		WithConfigFiles(first), WithEnviron(env), WithConfigFilesVar(""))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Default)

	_, err = Load[Settings](context.Background(), "example",
		WithEnviron(typedconf.MapEnviron{"EXAMPLE_SETTINGS": "!" + filepath.Join(dir, "missing.toml")}))
	assert.True(t, errors.Is(err, typedconf.ErrConfigFileNotFound))
}

func TestLoad_EnvOptions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "example.toml", exampleTOML)
	env := typedconf.MapEnviron{"EXAMPLE_HOST_PORT": "42", "CUSTOM_HOST_PORT": "43", "EXAMPLE_TAGS": "b:c"}

	cfg, err := Load[Settings](context.Background(), "example", WithConfigFiles(path), WithEnviron(env), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Host.Port)

	cfg, err = Load[Settings](context.Background(), "example", WithConfigFiles(path), WithEnviron(env), WithEnvPrefix("CUSTOM_"))
	require.NoError(t, err)
	assert.Equal(t, 43, cfg.Host.Port)

	cfg, err = Load[Settings](context.Background(), "example", WithConfigFiles(path), WithEnviron(env))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, cfg.Tags)
}

func TestLoad_Section(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.json", `{"url": "u", "host": {"name": "h", "port": 2}}`)

	cfg, err := Load[Settings](context.Background(), "example",
		WithConfigFiles(path), WithConfigFileSection(""), WithEnviron(typedconf.MapEnviron{}))
	require.NoError(t, err)
	assert.Equal(t, Host{Name: "h", Port: 2}, cfg.Host)

	_, err = Load[Settings](context.Background(), "example",
		WithConfigFiles(path), WithEnviron(typedconf.MapEnviron{}))
	var invalid *typedconf.InvalidSettingsError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"url", "host.name"}, invalid.Paths())
}

func TestLoad_ExtraSourcesAndProcessors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "example.toml", exampleTOML)
	strip := typedconf.ProcessorFunc(func(_ context.Context, settings map[string]any, options typedconf.OptionList) (map[string]any, error) {
		if v, err := typedconf.GetPath(settings, "host.name"); err == nil {
			typedconf.SetPath(settings, "host.name", "proxied-"+v.(string))
		}
		return settings, nil
	})

	cfg, err := Load[Settings](context.Background(), "example",
		WithConfigFiles(path),
		WithEnviron(typedconf.MapEnviron{"EXAMPLE_URL": "from-env"}),
		WithSources(typedconf.NewMapSource(map[string]any{"url": "from-cli"})),
		WithProcessors(strip),
	)
	require.NoError(t, err)
	assert.Equal(t, "from-cli", cfg.URL)
	assert.Equal(t, "proxied-example.com", cfg.Host.Name)
}

func TestLoad_FormatsConverterLogger(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "example.conf", "ignored")

	format := sourcefile.FormatFunc(func(string) (sourcefile.Document, error) {
		return sourcefile.Document{Data: map[string]any{
			"url":  "u",
			"tags": "x,y",
			"host": map[string]any{"name": "h"},
		}}, nil
	})
	conv, err := typedconf.NewConverter(typedconf.WithStrListSeparator(","))
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg, err := Load[Settings](context.Background(), "example",
		WithConfigFiles(path),
		WithFormats(map[string]sourcefile.Format{"*.conf": format}),
		WithConverter(conv),
		WithEnviron(typedconf.MapEnviron{}),
		WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, cfg.Tags)
	assert.Contains(t, buf.String(), `"message":"loading settings from file"`)
	assert.Contains(t, buf.String(), `"var":"EXAMPLE_HOST_NAME"`)
	assert.Contains(t, buf.String(), `"message":"settings converted"`)
}

func TestNewLoader_Validators(t *testing.T) {
	path := writeFile(t, t.TempDir(), "example.toml", exampleTOML)

	loader := NewLoader[Settings]("example", WithConfigFiles(path), WithEnviron(typedconf.MapEnviron{})).
		WithValidator(typedconf.ValidatorFunc[Settings](func(_ context.Context, cfg *Settings) error {
			if cfg.Host.Port < 1024 {
				return &typedconf.InvalidSettingsError{
					Settings:    reflect.TypeOf(*cfg),
					FieldErrors: []typedconf.FieldError{{Path: "host.port", Code: "privileged", Message: "port below 1024"}},
				}
			}
			return nil
		}))

	_, err := loader.Load(context.Background())
	var invalid *typedconf.InvalidSettingsError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"host.port"}, invalid.Paths())
}

func TestDefaultNames(t *testing.T) {
	assert.Equal(t, "MY_APP_", DefaultEnvPrefix("my-app"))
	assert.Equal(t, "EXAMPLE_", DefaultEnvPrefix("example"))
	assert.Equal(t, "MY_APP_SETTINGS", DefaultFilesVar("my-app"))
}
