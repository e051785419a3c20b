package starlark

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/neurodesk/stache/pkg/stache"
	"go.starlark.net/starlark"
)

// CreateBuiltins creates the functions predeclared for helper scripts.
//
//	escape(s)            HTML-escapes s the same way {{ }} tags do
//	render(src, **vars)  renders a template string against vars
//	log(*args)           writes args to logger at debug level
func CreateBuiltins(logger *slog.Logger) starlark.StringDict {
	if logger == nil {
		logger = slog.Default()
	}
	return starlark.StringDict{
		"escape": starlark.NewBuiltin("escape", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s starlark.Value
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &s); err != nil {
				return nil, err
			}
			return starlark.String(stache.EscapeHTML(asString(s))), nil
		}),

		"render": starlark.NewBuiltin("render", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s requires exactly 1 positional argument: template", fn.Name())
			}
			ctx := make(stache.Context, len(kwargs))
			for _, kv := range kwargs {
				ctx[string(kv[0].(starlark.String))] = ConvertFromStarlark(kv[1])
			}
			out, err := stache.TemplateString(asString(args[0])).Render(ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			return starlark.String(out), nil
		}),

		"log": starlark.NewBuiltin("log", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			buf := make([]string, 0, len(args))
			for _, a := range args {
				buf = append(buf, asString(a))
			}
			logger.Debug(strings.Join(buf, " "), "thread", thread.Name)
			return starlark.None, nil
		}),
	}
}

// asString returns the contents of a Starlark string without quotes, and
// the usual representation of anything else.
func asString(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}
