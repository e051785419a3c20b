package stache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Loader fetches template source by name.
type Loader interface {
	Load(name string) (string, error)
}

type ErrTemplateNotFound struct{ Name string }

func (e ErrTemplateNotFound) Error() string { return "template not found: " + e.Name }

type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return "", ErrTemplateNotFound{name}
}

// DirLoader reads templates from files under Dir. If Ext is set, a name
// without that extension is also tried with it.
type DirLoader struct {
	Dir string
	Ext string
}

func (d DirLoader) Load(name string) (string, error) {
	candidates := []string{name}
	if d.Ext != "" && filepath.Ext(name) != d.Ext {
		candidates = append(candidates, name+d.Ext)
	}
	for _, c := range candidates {
		b, err := os.ReadFile(filepath.Join(d.Dir, c))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", ErrTemplateNotFound{name}
}

// Loaders tries each loader in turn and returns the first template found.
type Loaders []Loader

func (ls Loaders) Load(name string) (string, error) {
	for _, l := range ls {
		src, err := l.Load(name)
		if err == nil {
			return src, nil
		}
		var nf ErrTemplateNotFound
		if !errors.As(err, &nf) {
			return "", err
		}
	}
	return "", ErrTemplateNotFound{name}
}
