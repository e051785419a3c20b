// Package stache parses mustache-style templates into an AST and renders
// them against a Context.
package stache

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnterminatedSection is matched by every *SectionError.
var ErrUnterminatedSection = errors.New("unterminated section")

// SectionError reports a section tag that has no matching end tag anywhere
// after it.
type SectionError struct {
	Name     string
	Inverted bool
	// Offset is the byte offset of the opening tag in the parsed source.
	Offset int
}

func (e *SectionError) Error() string {
	kind := "section"
	if e.Inverted {
		kind = "inverted section"
	}
	return fmt.Sprintf("%s %q at offset %d has no closing {{/%s}}", kind, e.Name, e.Offset, e.Name)
}

func (e *SectionError) Unwrap() error { return ErrUnterminatedSection }

func (e *SectionError) shift(n int) *SectionError {
	c := *e
	c.Offset += n
	return &c
}

// Parse parses a template. It always returns a usable Template: a tag that
// matches no rule, together with everything after it, becomes literal text.
//
// When that happens because a section is never closed, the Template is
// still returned, degraded the same way, and the error lists every such
// section as a *SectionError.
func Parse(src string) (*Template, error) {
	nodes, errs := defaultGrammar.parseTemplate(src)
	t := &Template{Nodes: nodes}
	if len(errs) == 0 {
		return t, nil
	}
	all := make([]error, len(errs))
	for i, e := range errs {
		all[i] = e
	}
	return t, errors.Join(all...)
}

// MustParse is like Parse but panics on an unterminated section.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// parseTemplate alternates between consuming text up to the next open
// delimiter and consuming exactly one tag, until src is used up.
func (g *grammar) parseTemplate(src string) ([]Node, []*SectionError) {
	var (
		nodes []Node
		errs  []*SectionError
	)
	rest := src
	for rest != "" {
		r, _ := g.text.Parse(rest)
		if s := r.Value.(string); s != "" {
			nodes = append(nodes, &TextNode{Text: s})
		}
		rest = r.Rest
		if rest == "" {
			break
		}

		pos := len(src) - len(rest)
		r, ok := g.tag.Parse(rest)
		if !ok {
			if e := g.unterminated(rest); e != nil {
				e.Offset = pos
				errs = append(errs, e)
			}
			slog.Debug("template tag degraded to text", "offset", pos)
			nodes = append(nodes, &TextNode{Text: rest})
			break
		}
		switch v := r.Value.(type) {
		case block:
			nodes = append(nodes, v.node)
			for _, e := range v.errs {
				errs = append(errs, e.shift(pos+len(openDelim)))
			}
		case Node:
			nodes = append(nodes, v)
		}
		rest = r.Rest
	}
	return nodes, errs
}

// unterminated reports whether in starts with a well-formed section open
// tag. It is only asked after the tag rule failed, in which case the
// section's end tag is missing.
func (g *grammar) unterminated(in string) *SectionError {
	r, ok := g.sectionOpen.Parse(in)
	if !ok {
		return nil
	}
	vs := r.Value.([]any)
	return &SectionError{
		Name:     vs[1].(*NameNode).Path,
		Inverted: vs[0].(string) == "^",
	}
}
