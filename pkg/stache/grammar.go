package stache

import (
	"regexp"

	pc "github.com/neurodesk/stache/pkg/combinator"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

const (
	namePattern   = `(?i)[a-z_$][a-z0-9_$]*(?:\.[a-z_$][a-z0-9_$]*)*`
	stringPattern = `'[^']*'|"[^"]*"`
	numberPattern = `\d+(?:\.\d+)?`
)

// block is the value produced by the section rules: the node plus the
// problems found while parsing its body, with offsets relative to the
// input the rule was given.
type block struct {
	node Node
	errs []*SectionError
}

// grammar holds the template language rules. Rules are built once and are
// safe for concurrent use.
type grammar struct {
	text        pc.Parser
	tag         pc.Parser
	sectionOpen pc.Parser
}

var defaultGrammar = newGrammar()

func newGrammar() *grammar {
	g := &grammar{}

	openTag := pc.Discard(pc.Pattern(regexp.QuoteMeta(openDelim)))
	closeTag := pc.Discard(pc.Pattern(regexp.QuoteMeta(closeDelim)))
	space := pc.Discard(pc.Pattern(`\s*`))

	name := pc.Map(pc.Pattern(namePattern), func(v any) any {
		return &NameNode{Path: v.(string)}
	})
	// Inside values the bare words true and false are literals, not names.
	reference := pc.Map(pc.Pattern(namePattern), func(v any) any {
		s := v.(string)
		if s == "true" || s == "false" {
			return &PrimitiveNode{Token: s}
		}
		return &NameNode{Path: s}
	})
	primitive := pc.Map(pc.AnyOf(
		pc.Pattern(stringPattern),
		pc.Pattern(numberPattern),
	), func(v any) any {
		return &PrimitiveNode{Token: v.(string)}
	})
	value := first(pc.AllOf(space, pc.AnyOf(reference, primitive), space))

	escaped := pc.Map(value, func(v any) any {
		return &EscapedNode{Inner: v.(Node)}
	})
	raw := pc.Map(
		first(pc.AllOf(pc.Discard(pc.Char('{')), value, pc.Discard(pc.Char('}')))),
		func(v any) any { return &UnescapedNode{Inner: v.(Node)} },
	)

	section := g.section('#', name, space, closeTag, func(ctx Node, body []Node) Node {
		return &SectionNode{Context: ctx, Body: body}
	})
	inverted := g.section('^', name, space, closeTag, func(ctx Node, body []Node) Node {
		return &InvertedSectionNode{Context: ctx, Body: body}
	})

	// moreArgs := "," value moreArgs | ε
	var moreArgs pc.Parser
	moreArgs = pc.Lazy(func() pc.Parser {
		return pc.Map(
			pc.AllOf(pc.Discard(pc.Char(',')), value, pc.AnyOf(moreArgs, pc.Always([]Node(nil)))),
			func(v any) any {
				vs := v.([]any)
				return append([]Node{vs[0].(Node)}, vs[1].([]Node)...)
			},
		)
	})
	args := pc.Map(
		pc.AllOf(pc.Discard(pc.Char(':')), value, pc.AnyOf(moreArgs, pc.Always([]Node(nil))), space),
		func(v any) any {
			vs := v.([]any)
			return &ArgsNode{Values: append([]Node{vs[0].(Node)}, vs[1].([]Node)...)}
		},
	)
	noArgs := pc.Map(pc.Always(nil), func(any) any { return &ArgsNode{} })
	helper := pc.Map(
		pc.AllOf(pc.Discard(pc.Char('%')), space, name, space, pc.AnyOf(args, noArgs), space),
		func(v any) any {
			vs := v.([]any)
			return &HelperNode{Name: vs[0].(Node), Args: vs[1].(*ArgsNode)}
		},
	)

	g.text = pc.Until(regexp.QuoteMeta(openDelim))
	// The sigils > (partial) and ! (comment) are reserved. Tags using them
	// match no rule and degrade to text.
	g.tag = first(pc.AllOf(
		openTag,
		pc.AnyOf(escaped, raw, section, inverted, helper),
		closeTag,
	))
	g.sectionOpen = pc.AllOf(
		openTag,
		pc.AnyOf(pc.Char('#'), pc.Char('^')),
		space, name, space,
		closeTag,
	)
	return g
}

// first unwraps the single value collected by an AllOf.
func first(p pc.Parser) pc.Parser {
	return pc.Map(p, func(v any) any { return v.([]any)[0] })
}

// section builds the rule for a section opened by sigil. The body runs up
// to the first matching end tag and is parsed as a template of its own. The
// closing delimiter of the end tag is left for the enclosing tag rule.
func (g *grammar) section(sigil rune, name, space, closeTag pc.Parser, build func(Node, []Node) Node) pc.Parser {
	open := pc.AllOf(pc.Discard(pc.Char(sigil)), space, name, space, closeTag)
	return pc.Func(func(in string) (pc.Result, bool) {
		r, ok := open.Parse(in)
		if !ok {
			return pc.Result{}, false
		}
		ctx := r.Value.([]any)[0].(*NameNode)
		loc := endTag(ctx.Path).FindStringIndex(r.Rest)
		if loc == nil {
			return pc.Result{}, false
		}
		body, errs := g.parseTemplate(r.Rest[:loc[0]])
		shift := len(in) - len(r.Rest)
		for i, e := range errs {
			errs[i] = e.shift(shift)
		}
		return pc.Result{
			Value: block{node: build(ctx, body), errs: errs},
			Rest:  r.Rest[loc[1]-len(closeDelim):],
		}, true
	})
}

// endTag returns the expression matching {{/ name }}, whitespace tolerated
// around the slash and the name.
func endTag(name string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(openDelim) + `\s*/\s*` + regexp.QuoteMeta(name) + `\s*` + regexp.QuoteMeta(closeDelim))
}
