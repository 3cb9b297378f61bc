package sourcefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"gopkg.in/yaml.v3"

	"github.com/Azhovan/typedconf"
)

// Document is the parsed content of one config file section.
type Document struct {
	// Data is the nested dict read from the section.
	Data map[string]any

	// Order maps the dotted key paths of Data, as written in the file, to
	// their position in the file. When two keys normalize to the same option
	// the later one wins.
	Order map[string]int
}

// Format parses one kind of config file.
type Format interface {
	// Parse reads path. It returns an error wrapping typedconf.ErrConfigFileNotFound
	// when path does not exist and typedconf.ErrConfigFileLoad when it cannot
	// be read or decoded. A missing section yields an empty Document.
	Parse(path string) (Document, error)
}

// FormatFunc is a function adapter for the Format interface.
type FormatFunc func(path string) (Document, error)

func (f FormatFunc) Parse(path string) (Document, error) {
	return f(path)
}

// DefaultFormats returns the TOML, YAML and JSON formats reading section.
func DefaultFormats(section string) map[string]Format {
	return map[string]Format{
		"*.toml": TOML{Section: section},
		"*.yaml": YAML{Section: section},
		"*.yml":  YAML{Section: section},
		"*.json": JSON{Section: section},
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", typedconf.ErrConfigFileNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", typedconf.ErrConfigFileLoad, err)
	}
	return data, nil
}

// selectSection descends into a dotted section. Order keys are re-rooted at the section.
func selectSection(data map[string]any, order map[string]int, section string) Document {
	doc := Document{Data: map[string]any{}, Order: map[string]int{}}
	if section != "" {
		for _, s := range strings.Split(section, ".") {
			sub, ok := data[s].(map[string]any)
			if !ok {
				return doc
			}
			data = sub
		}
	}
	doc.Data = data

	prefix := ""
	if section != "" {
		prefix = section + "."
	}
	for key, pos := range order {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			doc.Order[rest] = pos
		}
	}
	return doc
}

// TOML reads a section of a TOML file.
type TOML struct {
	Section string // Dotted table name, empty for the whole document
}

// Parse implements Format.
func (f TOML) Parse(path string) (Document, error) {
	data, err := readFile(path)
	if err != nil {
		return Document{}, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	order, err := tomlOrder(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
	}

	return selectSection(plainTOML(raw).(map[string]any), order, f.Section), nil
}

// plainTOML replaces local date and time values by their ISO strings.
func plainTOML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = plainTOML(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = plainTOML(item)
		}
		return val
	case toml.LocalDate:
		return val.String()
	case toml.LocalDateTime:
		return val.String()
	case toml.LocalTime:
		return val.String()
	default:
		return v
	}
}

func tomlOrder(data []byte) (map[string]int, error) {
	order := make(map[string]int)
	p := unstable.Parser{}
	p.Reset(data)

	var table []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = tomlKey(expr.Key())
		case unstable.KeyValue:
			tomlKeyValueOrder(expr, table, order)
		}
	}
	return order, p.Error()
}

func tomlKeyValueOrder(kv *unstable.Node, prefix []string, order map[string]int) {
	key := append(append([]string(nil), prefix...), tomlKey(kv.Key())...)
	order[strings.Join(key, ".")] = len(order)

	if value := kv.Value(); value.Kind == unstable.InlineTable {
		children := value.Children()
		for children.Next() {
			if child := children.Node(); child.Kind == unstable.KeyValue {
				tomlKeyValueOrder(child, key, order)
			}
		}
	}
}

func tomlKey(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// YAML reads a section of a YAML file.
type YAML struct {
	Section string // Dotted mapping name, empty for the whole document
}

// Parse implements Format.
func (f YAML) Parse(path string) (Document, error) {
	data, err := readFile(path)
	if err != nil {
		return Document{}, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
	}
	raw := map[string]any{}
	if len(node.Content) > 0 {
		if err := node.Decode(&raw); err != nil {
			return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
		}
	}

	order := make(map[string]int)
	if len(node.Content) > 0 {
		yamlOrder(node.Content[0], "", order)
	}
	return selectSection(raw, order, f.Section), nil
}

func yamlOrder(n *yaml.Node, prefix string, order map[string]int) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := prefix + n.Content[i].Value
		order[key] = len(order)
		yamlOrder(n.Content[i+1], key+".", order)
	}
}

// JSON reads a section of a JSON file. Numbers are kept as json.Number.
type JSON struct {
	Section string // Dotted object name, empty for the whole document
}

// Parse implements Format.
func (f JSON) Parse(path string) (Document, error) {
	data, err := readFile(path)
	if err != nil {
		return Document{}, err
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
	}

	order := make(map[string]int)
	if err := jsonOrder(json.NewDecoder(bytes.NewReader(data)), "", order); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", typedconf.ErrConfigFileLoad, path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return selectSection(raw, order, f.Section), nil
}

// jsonOrder walks one JSON value and records the position of every object key.
func jsonOrder(dec *json.Decoder, prefix string, order map[string]int) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	switch tok {
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key := prefix + fmt.Sprint(keyTok)
			order[key] = len(order)
			if err := jsonOrder(dec, key+".", order); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	case json.Delim('['):
		for dec.More() {
			if err := jsonOrder(dec, prefix, order); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}
	return nil
}
