package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/neurodesk/stache/pkg/netcache"
	"github.com/neurodesk/stache/pkg/stache"
	"github.com/neurodesk/stache/pkg/starlark"
	"github.com/neurodesk/stache/pkg/templates"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var renderOpts struct {
	data    string
	set     []string
	helpers []string
	out     string
	strict  bool
}

var renderCmd = cobra.Command{
	Use:   "render [template]",
	Short: "Render a template file, URL, catalog entry or stdin (-)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cache := cfg.cache()

		src, entry, err := loadTemplate(ctx, cache, args[0])
		if err != nil {
			return err
		}
		doc, err := stache.Parse(src)
		if err != nil {
			if renderOpts.strict {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			slog.Warn("template has unterminated sections, rendering them as text", "template", args[0], "error", err)
		}

		env, err := buildContext(ctx, cache, entry)
		if err != nil {
			return err
		}
		out := stache.NewRenderer(slog.Default()).Render(doc, env)

		if renderOpts.out == "" {
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		}
		return writeFile(renderOpts.out, out)
	},
}

func writeFile(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadTemplate resolves name to template source: stdin, a URL, a file
// (with or without the .mustache extension) or a catalog entry. For a
// catalog entry the definition is returned as well.
func loadTemplate(ctx context.Context, cache *netcache.Cache, name string) (string, *templates.Template, error) {
	var loaders stache.Loaders
	switch {
	case name == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", nil, err
		}
		loaders = append(loaders, stache.MemoryLoader{name: string(b)})
	case isURL(name):
		src, err := cache.ReadString(ctx, name)
		if err != nil {
			return "", nil, err
		}
		loaders = append(loaders, stache.MemoryLoader{name: src})
	}

	var entry *templates.Template
	loaders = append(loaders,
		stache.DirLoader{Ext: ".mustache"},
		templates.Loader{OnLoad: func(tpl templates.Template) { entry = &tpl }},
	)
	src, err := loaders.Load(name)
	if err != nil {
		var nf stache.ErrTemplateNotFound
		if errors.As(err, &nf) {
			return "", nil, fmt.Errorf("%s is neither a file nor a catalog template: %w", name, err)
		}
		return "", nil, err
	}
	return src, entry, nil
}

// buildContext layers, lowest first: the catalog entry's helpers and
// defaults, config helpers, --helpers, --data and --set. Helper scripts see
// every layer below them as globals.
func buildContext(ctx context.Context, cache *netcache.Cache, entry *templates.Template) (stache.Context, error) {
	data, err := renderData(ctx, cache)
	if err != nil {
		return nil, err
	}
	values := stache.NewContextFromAny(data)

	env := stache.Context{}
	if entry != nil {
		base, err := entry.Context(slog.Default(), data)
		if err != nil {
			return nil, err
		}
		maps.Copy(env, base)
	}
	maps.Copy(env, values)

	paths := append(append([]string{}, cfg.Helpers...), renderOpts.helpers...)
	if len(paths) == 0 {
		return env, nil
	}
	eval := starlark.NewEvaluator(slog.Default())
	eval.LoadContext(env)
	for _, path := range paths {
		src, err := readSource(ctx, cache, path)
		if err != nil {
			return nil, fmt.Errorf("reading helpers: %w", err)
		}
		if _, err := eval.ExecFile(path, src); err != nil {
			return nil, fmt.Errorf("loading helpers from %s: %w", path, err)
		}
	}
	maps.Copy(env, eval.ExportContext())
	maps.Copy(env, values)
	return env, nil
}

// renderData merges --data and --set.
func renderData(ctx context.Context, cache *netcache.Cache) (map[string]any, error) {
	data := map[string]any{}
	if renderOpts.data != "" {
		src, err := readSource(ctx, cache, renderOpts.data)
		if err != nil {
			return nil, fmt.Errorf("reading data: %w", err)
		}
		decoded, err := decodeData(renderOpts.data, src)
		if err != nil {
			return nil, fmt.Errorf("decoding data %s: %w", renderOpts.data, err)
		}
		maps.Copy(data, decoded)
	}

	for _, kv := range renderOpts.set {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: expected KEY=VALUE", kv)
		}
		var val any
		if err := yaml.Unmarshal([]byte(raw), &val); err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
		data[key] = val
	}
	return data, nil
}

// decodeData reads a TOML document when name ends in .toml and a YAML
// mapping otherwise; JSON input is valid YAML.
func decodeData(name, src string) (map[string]any, error) {
	var data map[string]any
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		if _, err := toml.Decode(src, &data); err != nil {
			return nil, err
		}
		return data, nil
	}
	if err := yaml.Unmarshal([]byte(src), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func readSource(ctx context.Context, cache *netcache.Cache, path string) (string, error) {
	switch {
	case path == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case isURL(path):
		return cache.ReadString(ctx, path)
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
