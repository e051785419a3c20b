package stache

import (
	"fmt"
)

// TemplateString is template source embedded in configuration, e.g. a YAML
// field.
type TemplateString string

func (t TemplateString) Validate() error {
	if _, err := Parse(string(t)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

func (t TemplateString) Render(ctx Context) (string, error) {
	doc, err := Parse(string(t))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return Render(doc, ctx), nil
}
