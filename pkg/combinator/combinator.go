// Package combinator provides a small parser-combinator toolkit over strings.
//
// A Parser consumes a prefix of its input and reports either a Result (the
// produced value plus the unconsumed remainder) or failure. Failure is a
// plain false, never an error or a panic, so parsers compose freely with
// AnyOf and AllOf.
package combinator

import (
	"regexp"
	"strings"
)

// Result pairs a produced value with the input left after parsing.
type Result struct {
	Value any
	Rest  string
}

// Parser consumes a prefix of in.
type Parser interface {
	Parse(in string) (Result, bool)
}

// Func adapts an ordinary function to the Parser interface.
type Func func(in string) (Result, bool)

func (f Func) Parse(in string) (Result, bool) { return f(in) }

type skip struct{}

// Skip is the value carried by results of Discard. AllOf leaves it out of
// the values it collects.
var Skip any = skip{}

// Skipped reports whether v is the Skip marker.
func Skipped(v any) bool {
	_, ok := v.(skip)
	return ok
}

// Char matches the single rune c.
func Char(c rune) Parser {
	s := string(c)
	return Func(func(in string) (Result, bool) {
		if !strings.HasPrefix(in, s) {
			return Result{}, false
		}
		return Result{Value: s, Rest: in[len(s):]}, true
	})
}

// Pattern matches the regular expression expr anchored at the start of the
// input. It panics if expr does not compile.
func Pattern(expr string) Parser {
	re := regexp.MustCompile(`^(?:` + expr + `)`)
	return Func(func(in string) (Result, bool) {
		loc := re.FindStringIndex(in)
		if loc == nil {
			return Result{}, false
		}
		return Result{Value: in[:loc[1]], Rest: in[loc[1]:]}, true
	})
}

// Until consumes everything before the first match of expr, or the whole
// input when there is no match. It never fails.
func Until(expr string) Parser {
	return UntilRegexp(regexp.MustCompile(expr))
}

// UntilRegexp is Until for a precompiled expression.
func UntilRegexp(re *regexp.Regexp) Parser {
	return Func(func(in string) (Result, bool) {
		loc := re.FindStringIndex(in)
		if loc == nil {
			return Result{Value: in, Rest: ""}, true
		}
		return Result{Value: in[:loc[0]], Rest: in[loc[0]:]}, true
	})
}

// Discard runs p and replaces its value with Skip.
func Discard(p Parser) Parser {
	return Func(func(in string) (Result, bool) {
		r, ok := p.Parse(in)
		if !ok {
			return Result{}, false
		}
		return Result{Value: Skip, Rest: r.Rest}, true
	})
}

// Always succeeds without consuming input.
func Always(v any) Parser {
	return Func(func(in string) (Result, bool) {
		return Result{Value: v, Rest: in}, true
	})
}
