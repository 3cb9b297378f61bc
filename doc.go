// Package typedconf loads typed application settings from defaults, config
// files, environment variables and command line flags.
//
// A settings type is a Go struct. Its exported fields are options; a field
// whose type is another settings struct nests that struct's options under the
// field's name:
//
//	type Host struct {
//	    Name string `conf:"default:localhost"`
//	    Port int    `conf:"default:8080" validate:"min=1"`
//	}
//
//	type Settings struct {
//	    URL      string `conf:"required"`
//	    Host     Host
//	    Password SecretStr
//	}
//
// The options of Settings are "url", "host.name", "host.port" and "password".
//
//	loader := typedconf.NewLoader[Settings]().
//	    WithSource(sourcefile.New(sourcefile.Options{Files: []string{"app.toml"}})).
//	    WithSource(sourceenv.New(sourceenv.Options{Prefix: "APP_"}))
//
//	cfg, err := loader.Load(context.Background())
//
// Tag directives: name:N, default:V, required, secret, help:TEXT, flag:NAME, short:X.
// Use conf:"-" to exclude a field. Package app bundles the common source setup.
package typedconf
