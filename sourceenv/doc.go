// Package sourceenv loads option values from environment variables.
//
// Variable names: prefix + upper-cased option path, dots replaced by
// underscores (host.port → MYAPP_HOST_PORT). Only variables of known options
// are read.
//
// Example:
//
//	source := sourceenv.New(sourceenv.Options{Prefix: "MYAPP_"})
//	loader := typedconf.NewLoader[Settings]().WithSource(source)
package sourceenv
