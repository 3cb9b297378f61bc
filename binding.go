package typedconf

import (
	"strings"
)

// tagConfig holds parsed directives from a struct field's `conf` tag.
type tagConfig struct {
	skip       bool   // Field is excluded from the settings (conf:"-")
	name       string // Option name (name:custom_name)
	defValue   string // Raw default value (default:value)
	hasDefault bool   // Whether a default directive was present
	required   bool   // Field has no default (required or required:true)
	secret     bool   // Field is secret (secret or secret:true)
	help       string // Help text for CLI adapters (help:text)
	flag       string // Flag name override for CLI adapters (flag:name)
	short      string // Flag shorthand for CLI adapters (short:x)
}

// parseTag parses a `conf` struct tag into a structured tagConfig.
// Tag format: "directive1:value1,directive2:value2,..."
// Boolean directives can omit `:true` (e.g., "required" == "required:true").
// Values of default and help may contain commas.
func parseTag(tag string) tagConfig {
	cfg := tagConfig{}

	if tag == "" {
		return cfg
	}
	if strings.TrimSpace(tag) == "-" {
		cfg.skip = true
		return cfg
	}

	for _, directive := range splitDirectives(tag) {
		if strings.TrimSpace(directive) == "" {
			continue
		}

		parts := strings.SplitN(directive, ":", 2)
		name := strings.TrimSpace(parts[0])
		var value string
		if len(parts) > 1 {
			value = parts[1] // Don't trim value - empty strings may be intentional
		}

		switch name {
		case "name":
			cfg.name = strings.TrimSpace(value)
		case "default":
			cfg.defValue = value
			cfg.hasDefault = true
		case "required":
			cfg.required = parseBoolDirective(value)
		case "secret":
			cfg.secret = parseBoolDirective(value)
		case "help":
			cfg.help = strings.TrimSpace(value)
		case "flag":
			cfg.flag = strings.TrimSpace(value)
		case "short":
			cfg.short = strings.TrimSpace(value)
		}
	}

	return cfg
}

// parseBoolDirective: no value or anything but "false" means true.
func parseBoolDirective(value string) bool {
	return strings.TrimSpace(value) != "false"
}

// greedyDirectives may carry commas in their value.
var greedyDirectives = []string{"default:", "help:"}

// splitDirectives splits a tag string into individual directives. A comma
// inside a default or help value only ends the directive when a known
// directive name follows it.
func splitDirectives(tag string) []string {
	var directives []string
	var current strings.Builder
	greedy := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]

		if current.Len() == 0 && !greedy {
			rest := strings.TrimLeft(tag[i:], " ")
			for _, d := range greedyDirectives {
				if strings.HasPrefix(rest, d) {
					greedy = true
					break
				}
			}
		}

		if ch != ',' {
			current.WriteByte(ch)
			continue
		}

		if greedy && !startsWithDirective(tag[i+1:]) {
			current.WriteByte(ch)
			continue
		}

		greedy = false
		directives = append(directives, current.String())
		current.Reset()
	}

	if current.Len() > 0 {
		directives = append(directives, current.String())
	}

	return directives
}

// startsWithDirective checks if a string starts with a known directive name.
func startsWithDirective(s string) bool {
	s = strings.TrimSpace(s)
	for _, d := range []string{"name:", "default:", "help:", "flag:", "short:", "required", "secret"} {
		if strings.HasPrefix(s, d) {
			return true
		}
	}
	return false
}
