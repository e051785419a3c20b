package starlark

import (
	"fmt"
	"log/slog"

	"github.com/neurodesk/stache/pkg/stache"
	"go.starlark.net/starlark"
)

// Evaluator runs Starlark helper scripts and exposes what they define to
// templates.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
	// names defined by executed scripts, as opposed to SetGlobal
	defined map[string]bool
}

// NewEvaluator creates a new Starlark evaluator. Output from print goes to
// logger.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	thread := &starlark.Thread{
		Name: "stache",
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info(msg, "thread", thread.Name)
		},
	}
	return &Evaluator{
		thread:   thread,
		builtins: CreateBuiltins(logger),
		globals:  make(starlark.StringDict),
		defined:  make(map[string]bool),
	}
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, value stache.Value) {
	e.globals[name] = ConvertToStarlark(value)
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	for k, v := range e.builtins {
		predeclared[k] = v
	}
	for k, v := range e.globals {
		predeclared[k] = v
	}
	return predeclared
}

// ExecFile executes a Starlark file and returns the globals it defined.
// src may be anything starlark.ExecFile accepts.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	for k, v := range globals {
		e.globals[k] = v
		e.defined[k] = true
	}
	return globals, nil
}

// LoadContext makes every entry of ctx visible to later scripts.
func (e *Evaluator) LoadContext(ctx stache.Context) {
	for key, value := range ctx {
		e.SetGlobal(key, value)
	}
}

// ExportContext returns the globals defined by executed scripts as a
// template Context. Names starting with an underscore stay private to the
// script.
func (e *Evaluator) ExportContext() stache.Context {
	ctx := make(stache.Context)
	for key := range e.defined {
		if !isExportableKey(key) {
			continue
		}
		ctx[key] = ConvertFromStarlark(e.globals[key])
	}
	return ctx
}

func isExportableKey(key string) bool {
	return key != "" && key[0] != '_'
}

// LoadHelpers runs a helper script with the entries of data as globals and
// returns what the script defines. Functions become helpers callable with
// {{% name: args }}.
func LoadHelpers(logger *slog.Logger, filename string, src any, data stache.Context) (stache.Context, error) {
	e := NewEvaluator(logger)
	e.LoadContext(data)
	if _, err := e.ExecFile(filename, src); err != nil {
		return nil, fmt.Errorf("loading helpers from %s: %w", filename, err)
	}
	return e.ExportContext(), nil
}
