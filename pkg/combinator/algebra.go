package combinator

import "sync"

// AnyOf tries ps in order and returns the first success. Order matters:
// it is how a grammar expresses precedence between overlapping rules.
func AnyOf(ps ...Parser) Parser {
	return Func(func(in string) (Result, bool) {
		for _, p := range ps {
			if r, ok := p.Parse(in); ok {
				return r, true
			}
		}
		return Result{}, false
	})
}

// AllOf runs ps one after another, each on the rest left by the previous
// one. The result value is a []any holding every value that is not Skip,
// in order. If any step fails, AllOf fails and nothing is consumed.
func AllOf(ps ...Parser) Parser {
	return Func(func(in string) (Result, bool) {
		values := make([]any, 0, len(ps))
		rest := in
		for _, p := range ps {
			r, ok := p.Parse(rest)
			if !ok {
				return Result{}, false
			}
			if !Skipped(r.Value) {
				values = append(values, r.Value)
			}
			rest = r.Rest
		}
		return Result{Value: values, Rest: rest}, true
	})
}

// Map applies fn to the value of a successful parse.
func Map(p Parser, fn func(v any) any) Parser {
	return Func(func(in string) (Result, bool) {
		r, ok := p.Parse(in)
		if !ok {
			return Result{}, false
		}
		return Result{Value: fn(r.Value), Rest: r.Rest}, true
	})
}

// Lazy defers building a parser until it is first used, which lets a
// rule refer to itself.
func Lazy(build func() Parser) Parser {
	get := sync.OnceValue(build)
	return Func(func(in string) (Result, bool) {
		return get().Parse(in)
	})
}
