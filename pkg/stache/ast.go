package stache

// Node is any AST node in a parsed template. The set of nodes is closed:
// only types in this package implement it.
type Node interface {
	node()
}

// Template is the root produced by Parse. It is never modified after Parse
// returns, so one Template may be rendered from many goroutines.
type Template struct {
	Nodes []Node
}

// TextNode represents literal text between tags.
type TextNode struct {
	Text string
}

func (*TextNode) node() {}

// NameNode is a dotted path looked up in the environment: foo.bar.baz
type NameNode struct {
	Path string
}

func (*NameNode) node() {}

// PrimitiveNode holds the source text of a literal: 'str', "str", 12, 1.5,
// true or false. The token is decoded when the node is evaluated.
type PrimitiveNode struct {
	Token string
}

func (*PrimitiveNode) node() {}

// EscapedNode is {{ expr }}: the value of Inner, HTML-escaped.
type EscapedNode struct {
	Inner Node
}

func (*EscapedNode) node() {}

// UnescapedNode is {{{ expr }}}: the value of Inner, verbatim.
type UnescapedNode struct {
	Inner Node
}

func (*UnescapedNode) node() {}

// SectionNode is {{# name }}...{{/ name }}.
type SectionNode struct {
	Context Node
	Body    []Node
}

func (*SectionNode) node() {}

// InvertedSectionNode is {{^ name }}...{{/ name }}.
type InvertedSectionNode struct {
	Context Node
	Body    []Node
}

func (*InvertedSectionNode) node() {}

// HelperNode is {{% name: arg, ... }}.
type HelperNode struct {
	Name Node
	Args *ArgsNode
}

func (*HelperNode) node() {}

// ArgsNode is the positional argument list of a helper call.
type ArgsNode struct {
	Values []Node
}

func (*ArgsNode) node() {}
