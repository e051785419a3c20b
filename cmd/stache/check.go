package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/neurodesk/stache/pkg/stache"
	"github.com/neurodesk/stache/pkg/templates"
	"github.com/spf13/cobra"
)

var parseNames bool

var parseCmd = cobra.Command{
	Use:   "parse [template]",
	Short: "Print the syntax tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := loadTemplate(cmd.Context(), cfg.cache(), args[0])
		if err != nil {
			return err
		}
		doc, err := stache.Parse(src)
		if parseNames {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(stache.Names(doc), "\n"))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), stache.Pretty(doc))
		}
		return err
	},
}

var checkCmd = cobra.Command{
	Use:   "check [name...]",
	Short: "Render the examples of catalog templates and compare the output",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			var err error
			if names, err = templates.List(); err != nil {
				return err
			}
		}
		var failed []error
		for _, name := range names {
			tpl, err := templates.Get(name)
			if err == nil {
				err = tpl.Check(slog.Default())
			}
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s\n", name)
				failed = append(failed, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d examples)\n", name, len(tpl.Examples))
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d templates failed: %w", len(failed), len(names), errors.Join(failed...))
		}
		return nil
	},
}

var listCmd = cobra.Command{
	Use:   "list",
	Short: "List catalog templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := templates.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range names {
			tpl, err := templates.Get(name)
			if err != nil {
				slog.Warn("skipping invalid template", "name", name, "error", err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", name, tpl.Description)
		}
		return w.Flush()
	},
}
