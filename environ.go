package typedconf

import "os"

// Environ looks up environment variables. Sources take an Environ so tests
// and .env files can stand in for the process environment.
type Environ interface {
	LookupEnv(key string) (string, bool)
}

// OSEnviron reads the process environment.
type OSEnviron struct{}

// LookupEnv implements Environ.
func (OSEnviron) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnviron is an in-memory environment.
type MapEnviron map[string]string

// LookupEnv implements Environ.
func (m MapEnviron) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
