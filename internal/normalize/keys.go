package normalize

import (
	"strings"
	"unicode"
)

// ToSnake derives an option name from a Go field name.
// Runs of capitals are kept together as one word.
// Examples:
//   - "Host" → "host"
//   - "MaxConns" → "max_conns"
//   - "APIKey" → "api_key"
//   - "HTTP2Port" → "http2_port"
func ToSnake(fieldName string) string {
	runes := []rune(fieldName)
	var b strings.Builder
	b.Grow(len(fieldName) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Key normalizes a single key read from a config file: dashes become underscores.
//   - "le-option" → "le_option"
func Key(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

// EnvVar derives the environment variable name for an option path.
//   - EnvVar("APP_", "host.port") → "APP_HOST_PORT"
func EnvVar(prefix, path string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// Flag derives a command line flag name for an option path.
//   - Flag("db.max_conns") → "db-max-conns"
func Flag(path string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(path)
}

// ApplyPrefix combines a prefix with a key to create a nested configuration path.
// If prefix is empty, returns the key unchanged.
// Examples:
//   - ApplyPrefix("database", "host") → "database.host"
//   - ApplyPrefix("", "host") → "host"
func ApplyPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}
