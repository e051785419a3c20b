package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neurodesk/stache/pkg/netcache"
	"github.com/neurodesk/stache/pkg/templates"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type stacheConfig struct {
	// TemplateDir overrides and extends the built-in template catalog.
	TemplateDir string `yaml:"template_dir,omitempty"`
	// CacheDir holds downloaded templates and data files.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// Helpers are Starlark scripts loaded for every render.
	Helpers []string `yaml:"helpers,omitempty"`
}

func (c *stacheConfig) loadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding config file: %w", err)
	}
	// Relative paths are relative to the config file.
	base := filepath.Dir(path)
	c.TemplateDir = resolvePath(base, c.TemplateDir)
	c.CacheDir = resolvePath(base, c.CacheDir)
	for i, h := range c.Helpers {
		c.Helpers[i] = resolvePath(base, h)
	}
	return nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (c *stacheConfig) cache() *netcache.Cache {
	dir := c.CacheDir
	if dir == "" {
		if d, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(d, "stache")
		} else {
			dir = filepath.Join(os.TempDir(), "stache-cache")
		}
	}
	cache := netcache.New(dir)
	cache.Logger = slog.Default()
	return cache
}

var (
	rootConfig  string
	templateDir string
	verbose     bool
	cfg         stacheConfig
)

var rootCmd = cobra.Command{
	Use:           "stache",
	Short:         "Render mustache-style templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := cfg.loadConfig(rootConfig); err != nil {
			// The default config file is optional.
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
				return fmt.Errorf("loading config: %w", err)
			}
			slog.Debug("no config file", "path", rootConfig)
		}
		if templateDir != "" {
			cfg.TemplateDir = templateDir
		}
		if cfg.TemplateDir != "" {
			templates.SetTemplateDir(cfg.TemplateDir)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "stache.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&templateDir, "template-dir", "", "Directory of template definitions, overrides template_dir from the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	renderCmd.Flags().StringVarP(&renderOpts.data, "data", "d", "", "YAML or JSON data file, URL, or - for stdin")
	renderCmd.Flags().StringArrayVar(&renderOpts.set, "set", nil, "Set a value as KEY=VALUE; VALUE is read as YAML (repeatable)")
	renderCmd.Flags().StringArrayVar(&renderOpts.helpers, "helpers", nil, "Starlark helper script (repeatable)")
	renderCmd.Flags().StringVarP(&renderOpts.out, "out", "o", "", "Write output to file instead of stdout")
	renderCmd.Flags().BoolVar(&renderOpts.strict, "strict", false, "Fail on unterminated sections instead of rendering them as text")
	rootCmd.AddCommand(&renderCmd)

	parseCmd.Flags().BoolVar(&parseNames, "names", false, "Print the names the template refers to instead of the tree")
	rootCmd.AddCommand(&parseCmd)

	rootCmd.AddCommand(&checkCmd)
	rootCmd.AddCommand(&listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
