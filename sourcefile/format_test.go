package sourcefile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azhovan/typedconf"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTOML_Parse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.toml", `
[example]
url = "https://example.com"
default = 5
day = 2020-01-02

[example.host]
name = "h"
port = 42

[other]
x = 1
`)

	doc, err := TOML{Section: "example"}.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"url":     "https://example.com",
		"default": int64(5),
		"day":     "2020-01-02",
		"host":    map[string]any{"name": "h", "port": int64(42)},
	}, doc.Data)
	assert.Equal(t, map[string]int{"url": 0, "default": 1, "day": 2, "host.name": 3, "host.port": 4}, doc.Order)

	doc, err = TOML{Section: "missing"}.Parse(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Data)

	doc, err = TOML{}.Parse(path)
	require.NoError(t, err)
	assert.Contains(t, doc.Data, "other")
	assert.Equal(t, 5, doc.Order["other.x"])
}

func TestTOML_InlineTableOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app.toml", `host = { port = 1, name = "h" }`)

	doc, err := TOML{}.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"host": 0, "host.port": 1, "host.name": 2}, doc.Order)
}

func TestTOML_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := TOML{}.Parse(filepath.Join(dir, "missing.toml"))
	assert.True(t, errors.Is(err, typedconf.ErrConfigFileNotFound))

	path := writeFile(t, dir, "broken.toml", "url = ")
	_, err = TOML{}.Parse(path)
	assert.True(t, errors.Is(err, typedconf.ErrConfigFileLoad))
	assert.Contains(t, err.Error(), path)
}

func TestYAML_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", `
example:
  url: https://example.com
  host:
    port: 42
    name: h
`)

	doc, err := YAML{Section: "example"}.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"url":  "https://example.com",
		"host": map[string]any{"name": "h", "port": 42},
	}, doc.Data)
	assert.Equal(t, map[string]int{"url": 1, "host": 2, "host.port": 3, "host.name": 4}, doc.Order)

	empty := writeFile(t, dir, "empty.yaml", "")
	doc, err = YAML{Section: "example"}.Parse(empty)
	require.NoError(t, err)
	assert.Empty(t, doc.Data)

	broken := writeFile(t, dir, "broken.yaml", "example: [")
	_, err = YAML{}.Parse(broken)
	assert.True(t, errors.Is(err, typedconf.ErrConfigFileLoad))
}

func TestJSON_Parse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{
  "example": {"url": "https://example.com", "tags": ["a", {"k": 1}], "host": {"port": 42}}
}`)

	doc, err := JSON{Section: "example"}.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"url":  "https://example.com",
		"tags": []any{"a", map[string]any{"k": json.Number("1")}},
		"host": map[string]any{"port": json.Number("42")},
	}, doc.Data)
	assert.Equal(t, 1, doc.Order["url"])
	assert.Equal(t, 5, doc.Order["host.port"])

	broken := writeFile(t, dir, "broken.json", `{"url": `)
	_, err = JSON{}.Parse(broken)
	assert.True(t, errors.Is(err, typedconf.ErrConfigFileLoad))
}
