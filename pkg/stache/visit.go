package stache

import (
	"bytes"
	"fmt"
	"strings"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk calls v.Visit for n and then for each of its children, depth first.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	var children []Node
	switch t := n.(type) {
	case *EscapedNode:
		children = []Node{t.Inner}
	case *UnescapedNode:
		children = []Node{t.Inner}
	case *SectionNode:
		children = append([]Node{t.Context}, t.Body...)
	case *InvertedSectionNode:
		children = append([]Node{t.Context}, t.Body...)
	case *HelperNode:
		children = []Node{t.Name, t.Args}
	case *ArgsNode:
		children = t.Values
	}
	for _, c := range children {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every node of the template in source order.
func (t *Template) Walk(v Visitor) error {
	for _, n := range t.Nodes {
		if err := Walk(v, n); err != nil {
			return err
		}
	}
	return nil
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Names returns the distinct dotted names a template refers to, in order of
// first appearance.
func Names(t *Template) []string {
	var out []string
	seen := map[string]bool{}
	_ = t.Walk(VisitorFunc(func(n Node) error {
		if nn, ok := n.(*NameNode); ok && !seen[nn.Path] {
			seen[nn.Path] = true
			out = append(out, nn.Path)
		}
		return nil
	}))
	return out
}

// Pretty returns a line-oriented string representation of the AST.
func Pretty(t *Template) string {
	var buf bytes.Buffer
	buf.WriteString("Template\n")
	for _, n := range t.Nodes {
		ppNode(&buf, 2, n)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	buf.WriteString(strings.Repeat(" ", indent))
	switch t := n.(type) {
	case *TextNode:
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *NameNode:
		fmt.Fprintf(buf, "Name(%s)\n", t.Path)
	case *PrimitiveNode:
		fmt.Fprintf(buf, "Primitive(%s)\n", t.Token)
	case *EscapedNode:
		buf.WriteString("Escaped\n")
		ppNode(buf, indent+2, t.Inner)
	case *UnescapedNode:
		buf.WriteString("Unescaped\n")
		ppNode(buf, indent+2, t.Inner)
	case *SectionNode:
		buf.WriteString("Section\n")
		ppNode(buf, indent+2, t.Context)
		for _, c := range t.Body {
			ppNode(buf, indent+4, c)
		}
	case *InvertedSectionNode:
		buf.WriteString("InvertedSection\n")
		ppNode(buf, indent+2, t.Context)
		for _, c := range t.Body {
			ppNode(buf, indent+4, c)
		}
	case *HelperNode:
		buf.WriteString("Helper\n")
		ppNode(buf, indent+2, t.Name)
		ppNode(buf, indent+2, t.Args)
	case *ArgsNode:
		buf.WriteString("Args\n")
		for _, c := range t.Values {
			ppNode(buf, indent+2, c)
		}
	}
}
