package stache

import (
	"strconv"
	"strings"
)

// eval computes the value of a single node. Section-like nodes evaluate to
// the StringValue of their rendered body.
func (r *Renderer) eval(n Node, s *scope) Value {
	switch t := n.(type) {
	case *TextNode:
		return StringValue(t.Text)
	case *PrimitiveNode:
		return decodePrimitive(t.Token)
	case *NameNode:
		return resolve(t.Path, s)
	case *EscapedNode:
		v := r.eval(t.Inner, s)
		if !v.Truth() {
			return StringValue("")
		}
		return StringValue(EscapeHTML(v.String()))
	case *UnescapedNode:
		return r.eval(t.Inner, s)
	case *HelperNode:
		return r.call(t, s)
	case *ArgsNode:
		out := make(ListValue, 0, len(t.Values))
		for _, a := range t.Values {
			out = append(out, r.eval(a, s))
		}
		return out
	case *SectionNode:
		return r.section(t, s)
	case *InvertedSectionNode:
		if r.eval(t.Context, s).Truth() {
			return StringValue("")
		}
		var buf strings.Builder
		r.renderNodes(&buf, t.Body, s)
		return StringValue(buf.String())
	default:
		r.logger().Error("unhandled node type", "node", n)
		return NoneValue{}
	}
}

func (r *Renderer) section(t *SectionNode, s *scope) Value {
	var buf strings.Builder
	switch v := r.eval(t.Context, s).(type) {
	case ListValue:
		for _, item := range v {
			inner := s
			if d, ok := item.(DictValue); ok {
				inner = s.push(d)
			}
			r.renderNodes(&buf, t.Body, inner)
		}
	case DictValue:
		r.renderNodes(&buf, t.Body, s.push(v))
	default:
		if !v.Truth() {
			return StringValue("")
		}
		r.renderNodes(&buf, t.Body, s)
	}
	return StringValue(buf.String())
}

// call invokes a helper. A helper that fails or panics renders as "".
func (r *Renderer) call(t *HelperNode, s *scope) (result Value) {
	fn, ok := r.eval(t.Name, s).(CallableValue)
	if !ok || fn.Fn == nil {
		return NoneValue{}
	}
	args := r.eval(t.Args, s).(ListValue)
	defer func() {
		if p := recover(); p != nil {
			r.logger().Warn("helper call panicked", "helper", helperName(t), "panic", p)
			result = NoneValue{}
		}
	}()
	out, err := fn.Fn(args)
	if err != nil {
		r.logger().Warn("helper call failed", "helper", helperName(t), "error", err)
		return NoneValue{}
	}
	if out == nil {
		return NoneValue{}
	}
	return out
}

func helperName(t *HelperNode) string {
	if n, ok := t.Name.(*NameNode); ok {
		return n.Path
	}
	return ""
}

// resolve looks up a dotted path one segment at a time. Any missing
// segment makes the whole path resolve to NoneValue.
func resolve(path string, s *scope) Value {
	segs := strings.Split(path, ".")
	cur, ok := s.lookup(segs[0])
	if !ok {
		return NoneValue{}
	}
	for _, seg := range segs[1:] {
		if cur, ok = index(cur, seg); !ok {
			return NoneValue{}
		}
	}
	if cur == nil {
		return NoneValue{}
	}
	return cur
}

// decodePrimitive turns literal source text into a value. Only the literal
// forms accepted by the grammar are understood; anything else is returned
// as a plain string.
func decodePrimitive(tok string) Value {
	switch {
	case tok == "true":
		return BoolValue(true)
	case tok == "false":
		return BoolValue(false)
	case len(tok) >= 2 && (tok[0] == '\'' || tok[0] == '"') && tok[len(tok)-1] == tok[0]:
		return StringValue(tok[1 : len(tok)-1])
	}
	if !strings.Contains(tok, ".") {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return IntValue(i)
		}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(tok)
}
