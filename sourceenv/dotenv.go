package sourceenv

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/Azhovan/typedconf"
)

// DotenvEnviron layers variables read from .env files under a base environment.
// Variables of the base environment win; among the files, earlier files win.
type DotenvEnviron struct {
	base typedconf.Environ
	vars map[string]string
}

// NewDotenvEnviron reads the given .env files. A nil base uses the process environment.
func NewDotenvEnviron(base typedconf.Environ, files ...string) (*DotenvEnviron, error) {
	if base == nil {
		base = typedconf.OSEnviron{}
	}
	vars := make(map[string]string)
	for _, file := range files {
		read, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("read dotenv file %s: %w", file, err)
		}
		for k, v := range read {
			if _, exists := vars[k]; !exists {
				vars[k] = v
			}
		}
	}
	return &DotenvEnviron{base: base, vars: vars}, nil
}

// LookupEnv implements typedconf.Environ.
func (d *DotenvEnviron) LookupEnv(key string) (string, bool) {
	if v, ok := d.base.LookupEnv(key); ok {
		return v, true
	}
	v, ok := d.vars[key]
	return v, ok
}
