package stache

import (
	"log/slog"
	"strings"
)

// Renderer evaluates templates. The zero value is ready to use and logs to
// slog.Default().
type Renderer struct {
	Logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{Logger: logger}
}

// Render evaluates t against ctx. It never fails: missing names, helpers
// that are not callable and falsy section contexts all render as "".
// A nil ctx behaves like an empty one.
func (r *Renderer) Render(t *Template, ctx Context) string {
	if t == nil {
		return ""
	}
	var buf strings.Builder
	r.renderNodes(&buf, t.Nodes, newScope(ctx))
	return buf.String()
}

// Render evaluates t against ctx with a default Renderer.
func Render(t *Template, ctx Context) string {
	var r Renderer
	return r.Render(t, ctx)
}

func (r *Renderer) renderNodes(buf *strings.Builder, nodes []Node, s *scope) {
	for _, n := range nodes {
		buf.WriteString(r.eval(n, s).String())
	}
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
