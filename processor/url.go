// Package processor provides settings processors that rewrite loaded values
// before they are converted.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Azhovan/typedconf"
)

// Handler resolves the part of a value after its scheme.
type Handler interface {
	Handle(ctx context.Context, value, scheme string) (string, error)
}

// HandlerFunc is a function adapter for the Handler interface.
type HandlerFunc func(ctx context.Context, value, scheme string) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, value, scheme string) (string, error) {
	return f(ctx, value, scheme)
}

// SchemeHandler binds a handler to a scheme prefix such as "script://".
type SchemeHandler struct {
	Scheme  string
	Handler Handler
}

// URL rewrites string values that start with one of its schemes. Schemes are
// tried in order and each value is handled at most once.
type URL struct {
	handlers []SchemeHandler
	logger   zerolog.Logger
}

// NewURL creates a URL processor.
func NewURL(handlers ...SchemeHandler) *URL {
	return &URL{handlers: handlers, logger: zerolog.Nop()}
}

// WithLogger sets the logger used for handled values.
func (u *URL) WithLogger(logger zerolog.Logger) *URL {
	u.logger = logger
	return u
}

// Handle appends a handler for scheme.
func (u *URL) Handle(scheme string, h Handler) *URL {
	u.handlers = append(u.handlers, SchemeHandler{Scheme: scheme, Handler: h})
	return u
}

// Process implements typedconf.Processor.
func (u *URL) Process(ctx context.Context, settings map[string]any, options typedconf.OptionList) (map[string]any, error) {
	for _, pv := range typedconf.IterSettings(settings, options) {
		value, ok := pv.Value.(string)
		if !ok {
			continue
		}
		for _, sh := range u.handlers {
			rest, found := strings.CutPrefix(value, sh.Scheme)
			if !found {
				continue
			}
			result, err := sh.Handler.Handle(ctx, rest, sh.Scheme)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pv.Path, err)
			}
			u.logger.Debug().Str("path", pv.Path).Str("scheme", sh.Scheme).Msg("value handled")
			typedconf.SetPath(settings, pv.Path, result)
			break
		}
	}
	return settings, nil
}

// Raw returns the value without its scheme.
var Raw = HandlerFunc(func(_ context.Context, value, _ string) (string, error) {
	return value, nil
})

// ScriptError reports a failed helper script.
type ScriptError struct {
	Script   string // Scheme and script as written in the settings
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("helper script failed: %s\nEXIT CODE: %d\nSTDOUT:\n%sSTDERR:\n%s", e.Script, e.ExitCode, e.Stdout, e.Stderr)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Script runs the value with "sh -c" and returns its trimmed stdout.
var Script = HandlerFunc(func(ctx context.Context, value, scheme string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", value)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		exitCode := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &ScriptError{
			Script:   scheme + value,
			ExitCode: exitCode,
			Stdout:   outBuf.String(),
			Stderr:   errBuf.String(),
			Err:      err,
		}
	}

	return strings.TrimSpace(outBuf.String()), nil
})

// Default returns a URL processor handling "raw://" and "script://".
func Default() *URL {
	return NewURL(
		SchemeHandler{Scheme: "raw://", Handler: Raw},
		SchemeHandler{Scheme: "script://", Handler: Script},
	)
}
