package templates

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/neurodesk/stache/pkg/stache"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuiltInExamples(t *testing.T) {
	for name, tpl := range templates {
		t.Run(name, func(t *testing.T) {
			if len(tpl.Examples) == 0 {
				t.Fatalf("built-in template %q has no examples", name)
			}
			if err := tpl.Check(quietLogger()); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestDemo(t *testing.T) {
	tpl, err := Get("demo")
	if err != nil {
		t.Fatalf("Failed to get built-in template: %v", err)
	}
	got, err := tpl.Execute(quietLogger(), map[string]any{"name": []any{1, 2}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(got, "  Hello world  Hello world  foo bar baz  ah") {
		t.Fatalf("got %q", got)
	}
}

func TestTemplateOverride(t *testing.T) {
	tempDir := t.TempDir()
	overrideContent := `name: test-template
template: "override {{ x }}"
examples:
  - name: x
    data: {x: 1}
    want: override 1
`
	if err := os.WriteFile(filepath.Join(tempDir, "test-template.yaml"), []byte(overrideContent), 0o644); err != nil {
		t.Fatalf("Failed to write override template: %v", err)
	}

	_, err := Get("test-template")
	var nf stache.ErrTemplateNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("Expected ErrTemplateNotFound, got %v", err)
	}

	SetTemplateDir(tempDir)
	defer SetTemplateDir("")

	tpl, err := Get("test-template")
	if err != nil {
		t.Fatalf("Failed to get override template: %v", err)
	}
	if err := tpl.Check(quietLogger()); err != nil {
		t.Fatal(err)
	}

	// Built-ins stay visible behind the override directory.
	if _, err := Get("greeting"); err != nil {
		t.Fatalf("Failed to get built-in template: %v", err)
	}
	names, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, want := range []string{"demo", "greeting", "roster", "test-template"} {
		if !slices.Contains(names, want) {
			t.Errorf("List() = %v, missing %q", names, want)
		}
	}
	if !slices.IsSorted(names) {
		t.Errorf("List() not sorted: %v", names)
	}

	var loaded Template
	ldr := stache.Loaders{stache.MemoryLoader{}, Loader{OnLoad: func(tpl Template) { loaded = tpl }}}
	src, err := ldr.Load("test-template")
	if err != nil || src != "override {{ x }}" {
		t.Fatalf("Load = %q, %v", src, err)
	}
	if loaded.Name != "test-template" || len(loaded.Examples) != 1 {
		t.Fatalf("OnLoad got %+v", loaded)
	}
}

func TestInvalidOverride(t *testing.T) {
	tempDir := t.TempDir()
	files := map[string]string{
		"unknown.yaml":      "name: unknown\ntemplate: x\nbogus: 1\n",
		"unterminated.yaml": "name: unterminated\ntemplate: \"{{#a}}\"\n",
		"badkey.yaml":       "name: badkey\ntemplate: x\ndata:\n  a.b: 1\n",
		"dupes.yaml":        "name: dupes\ntemplate: x\nexamples:\n  - {name: a, want: x}\n  - {name: a, want: x}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	SetTemplateDir(tempDir)
	defer SetTemplateDir("")

	for name := range files {
		if _, err := Get(strings.TrimSuffix(name, ".yaml")); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	_, err := Get("unterminated")
	if !errors.Is(err, stache.ErrUnterminatedSection) {
		t.Errorf("expected ErrUnterminatedSection, got %v", err)
	}
}

func TestCheckReportsMismatch(t *testing.T) {
	tpl := Template{
		Name:   "t",
		Source: "{{ a }}",
		Examples: []Example{
			{Name: "ok", Data: map[string]any{"a": "x"}, Want: "x"},
			{Name: "bad", Data: map[string]any{"a": "y"}, Want: "x"},
		},
	}
	err := tpl.Check(quietLogger())
	var ee *ExampleError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExampleError, got %v", err)
	}
	if ee.Example != "bad" || ee.Got != "y" {
		t.Fatalf("unexpected error: %+v", ee)
	}
}

func TestBrokenHelpers(t *testing.T) {
	tpl := Template{Name: "t", Source: "x", Helpers: "def ("}
	if _, err := tpl.Execute(quietLogger(), nil); err == nil {
		t.Fatal("expected helper load error")
	}
}

func TestHelpersSeeData(t *testing.T) {
	tpl := Template{
		Name:    "t",
		Source:  "{{% hi }}",
		Data:    map[string]any{"who": "default"},
		Helpers: "def hi():\n    return \"hi \" + who\n",
	}
	tests := []struct {
		data map[string]any
		want string
	}{
		{nil, "hi default"},
		{map[string]any{"who": "Ann"}, "hi Ann"},
	}
	for _, tt := range tests {
		got, err := tpl.Execute(quietLogger(), tt.data)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
