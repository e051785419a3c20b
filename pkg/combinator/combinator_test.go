package combinator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name  string
		p     Parser
		in    string
		ok    bool
		value any
		rest  string
	}{
		{"char match", Char('{'), "{x", true, "{", "x"},
		{"char miss", Char('{'), "x{", false, nil, ""},
		{"char empty", Char('{'), "", false, nil, ""},
		{"char multibyte", Char('é'), "éa", true, "é", "a"},
		{"pattern anchored", Pattern(`\d+`), "12ab", true, "12", "ab"},
		{"pattern not at start", Pattern(`\d+`), "ab12", false, nil, ""},
		{"pattern empty match", Pattern(`\s*`), "abc", true, "", "abc"},
		{"pattern alternation stays anchored", Pattern(`a|b`), "xb", false, nil, ""},
		{"until match", Until(`{{`), "ab{{c", true, "ab", "{{c"},
		{"until at start", Until(`{{`), "{{c", true, "", "{{c"},
		{"until no match", Until(`{{`), "abc", true, "abc", ""},
		{"until empty input", Until(`{{`), "", true, "", ""},
		{"always", Always(42), "abc", true, 42, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := tt.p.Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if r.Value != tt.value {
				t.Errorf("value = %#v, want %#v", r.Value, tt.value)
			}
			if r.Rest != tt.rest {
				t.Errorf("rest = %q, want %q", r.Rest, tt.rest)
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	r, ok := Discard(Char('#')).Parse("#a")
	if !ok {
		t.Fatal("discard failed")
	}
	if !Skipped(r.Value) {
		t.Errorf("value = %#v, want Skip", r.Value)
	}
	if r.Rest != "a" {
		t.Errorf("rest = %q, want %q", r.Rest, "a")
	}
	if _, ok := Discard(Char('#')).Parse("a"); ok {
		t.Error("discard should fail when its parser fails")
	}
}

func TestAnyOfOrder(t *testing.T) {
	p := AnyOf(
		Map(Pattern(`ab`), func(any) any { return "first" }),
		Map(Pattern(`a`), func(any) any { return "second" }),
	)
	r, ok := p.Parse("abc")
	if !ok || r.Value != "first" || r.Rest != "c" {
		t.Fatalf("got %#v %v, want first alternative", r, ok)
	}
	r, ok = p.Parse("ac")
	if !ok || r.Value != "second" || r.Rest != "c" {
		t.Fatalf("got %#v %v, want second alternative", r, ok)
	}
	if _, ok := p.Parse("x"); ok {
		t.Fatal("AnyOf should fail when every alternative fails")
	}
	if _, ok := AnyOf().Parse("x"); ok {
		t.Fatal("empty AnyOf should fail")
	}
}

func TestAllOf(t *testing.T) {
	p := AllOf(Discard(Char('(')), Pattern(`\w+`), Discard(Char(',')), Pattern(`\w+`), Discard(Char(')')))
	r, ok := p.Parse("(a,b)tail")
	if !ok {
		t.Fatal("AllOf failed")
	}
	if diff := cmp.Diff([]any{"a", "b"}, r.Value); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if r.Rest != "tail" {
		t.Errorf("rest = %q, want %q", r.Rest, "tail")
	}

	if _, ok := p.Parse("(a,b"); ok {
		t.Error("AllOf should fail when a later step fails")
	}

	r, ok = AllOf().Parse("xyz")
	if !ok || r.Rest != "xyz" {
		t.Errorf("empty AllOf = %#v %v, want success consuming nothing", r, ok)
	}
}

func TestLazyRecursion(t *testing.T) {
	// nested := "(" nested ")" | "x"
	var nested Parser
	nested = Lazy(func() Parser {
		return AnyOf(
			Map(AllOf(Discard(Char('(')), nested, Discard(Char(')'))), func(v any) any {
				return "(" + v.([]any)[0].(string) + ")"
			}),
			Pattern(`x`),
		)
	})
	r, ok := nested.Parse("((x))!")
	if !ok {
		t.Fatal("recursive parse failed")
	}
	if r.Value != "((x))" || r.Rest != "!" {
		t.Errorf("got %#v, want ((x)) with rest !", r)
	}
}
