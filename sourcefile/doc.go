// Package sourcefile loads option values from TOML, YAML or JSON config files.
//
// Files are given explicitly and through an environment variable holding a
// ":" separated list. A leading "!" makes a file mandatory. The format is
// picked by matching the file name against glob patterns.
//
// Example:
//
//	source := sourcefile.New(sourcefile.Options{
//	    Files:   []string{"/etc/myapp.toml", "!myapp.toml"},
//	    EnvVar:  "MYAPP_SETTINGS",
//	    Formats: sourcefile.DefaultFormats("myapp"),
//	})
//	loader := typedconf.NewLoader[Settings]().WithSource(source)
package sourcefile
