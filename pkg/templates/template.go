// Package templates is the catalog of named template definitions. Built-in
// definitions are embedded in the binary; a template directory set with
// SetTemplateDir takes precedence over them.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/neurodesk/stache/pkg/stache"
	"github.com/neurodesk/stache/pkg/starlark"
	v "github.com/neurodesk/stache/pkg/validator"
	"gopkg.in/yaml.v3"
)

// Example is a golden rendering of a template: rendering it with Data
// merged over the template defaults must produce Want.
type Example struct {
	Name string         `yaml:"name"`
	Data map[string]any `yaml:"data,omitempty"`
	Want string         `yaml:"want"`
}

func (e Example) Validate() error {
	return v.All(
		v.NotEmpty(e.Name, "example name"),
		v.MapDict(e.Data, func(key string, _ any) error {
			return v.IsName(key, "data key")
		}, fmt.Sprintf("example %q data", e.Name)),
	)
}

type Template struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description,omitempty"`
	Source      stache.TemplateString `yaml:"template"`
	// Data holds default values, overridden key by key by render data.
	Data map[string]any `yaml:"data,omitempty"`
	// Helpers is a Starlark script; the functions it defines can be called
	// from the template with {{% name: args }}.
	Helpers  string    `yaml:"helpers,omitempty"`
	Examples []Example `yaml:"examples,omitempty"`
}

func (t Template) Validate() error {
	return v.All(
		v.NotEmpty(t.Name, "name"),
		v.HasNoTags(t.Name, "name"),
		v.HasNoTags(t.Description, "description"),
		t.Source.Validate(),
		v.MapDict(t.Data, func(key string, _ any) error {
			return v.IsName(key, "data key")
		}, "data"),
		v.Each(t.Examples),
		v.NoDuplicates(exampleNames(t.Examples), "example names"),
	)
}

func exampleNames(examples []Example) []string {
	names := make([]string, len(examples))
	for i, e := range examples {
		names[i] = e.Name
	}
	return names
}

// Context builds the render context: helpers first, then the template
// defaults, then data. Helper scripts see the defaults and data as globals.
func (t Template) Context(logger *slog.Logger, data map[string]any) (stache.Context, error) {
	values := stache.NewContextFromAny(t.Data)
	maps.Copy(values, stache.NewContextFromAny(data))

	ctx := stache.Context{}
	if t.Helpers != "" {
		helpers, err := starlark.LoadHelpers(logger, t.Name+".star", t.Helpers, values)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		maps.Copy(ctx, helpers)
	}
	maps.Copy(ctx, values)
	return ctx, nil
}

// Execute renders the template with data merged over its defaults.
func (t Template) Execute(logger *slog.Logger, data map[string]any) (string, error) {
	doc, err := stache.Parse(string(t.Source))
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", t.Name, err)
	}
	ctx, err := t.Context(logger, data)
	if err != nil {
		return "", err
	}
	return stache.NewRenderer(logger).Render(doc, ctx), nil
}

// ExampleError reports a golden example whose output differs.
type ExampleError struct {
	Template string
	Example  string
	Got      string
	Want     string
}

func (e *ExampleError) Error() string {
	return fmt.Sprintf("template %q example %q: got %q, want %q", e.Template, e.Example, e.Got, e.Want)
}

// Check renders every example and reports all mismatches.
func (t Template) Check(logger *slog.Logger) error {
	var errs []error
	for _, ex := range t.Examples {
		got, err := t.Execute(logger, ex.Data)
		if err != nil {
			errs = append(errs, fmt.Errorf("example %q: %w", ex.Name, err))
			continue
		}
		if got != ex.Want {
			errs = append(errs, &ExampleError{Template: t.Name, Example: ex.Name, Got: got, Want: ex.Want})
		}
	}
	return errors.Join(errs...)
}

// Decode reads a single definition. Unknown fields are rejected.
func Decode(r io.Reader) (Template, error) {
	var tpl Template
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return Template{}, err
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

//go:embed *.yaml
var Files embed.FS

var templates = map[string]Template{}

var (
	mu          sync.RWMutex
	templateDir string
)

// SetTemplateDir sets a directory searched for <name>.yaml before the
// built-in definitions. An empty dir disables the lookup.
func SetTemplateDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	templateDir = dir
}

func getTemplateDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return templateDir
}

func Get(name string) (Template, error) {
	if dir := getTemplateDir(); dir != "" {
		tpl, err := loadFile(filepath.Join(dir, name+".yaml"))
		if err == nil {
			return tpl, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Template{}, err
		}
	}
	if tpl, ok := templates[name]; ok {
		return tpl, nil
	}
	return Template{}, stache.ErrTemplateNotFound{Name: name}
}

func loadFile(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	tpl, err := Decode(bytes.NewReader(content))
	if err != nil {
		return Template{}, fmt.Errorf("failed to load template %q: %w", path, err)
	}
	slog.Debug("loaded template override", "path", path)
	return tpl, nil
}

// List returns the names of all built-in and override templates, sorted.
func List() ([]string, error) {
	names := slices.Collect(maps.Keys(templates))
	if dir := getTemplateDir(); dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("listing template dir: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".yaml")
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

// Loader exposes template sources from the catalog to stache.Loader users.
// OnLoad, if set, receives the full definition of every template loaded.
type Loader struct {
	OnLoad func(Template)
}

func (l Loader) Load(name string) (string, error) {
	tpl, err := Get(name)
	if err != nil {
		return "", err
	}
	if l.OnLoad != nil {
		l.OnLoad(tpl)
	}
	return string(tpl.Source), nil
}

var _ stache.Loader = Loader{}

func init() {
	entries, err := Files.ReadDir(".")
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		content, err := Files.ReadFile(name)
		if err != nil {
			panic(err)
		}
		tpl, err := Decode(bytes.NewReader(content))
		if err != nil {
			panic(fmt.Errorf("failed to decode template %q: %w", name, err))
		}
		templates[strings.TrimSuffix(name, ".yaml")] = tpl
	}
}
