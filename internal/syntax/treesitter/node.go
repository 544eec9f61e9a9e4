package treesitter

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"eachfmt/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

var functionTypes = map[string]bool{
	"arrow_function":                 true,
	"function":                       true,
	"function_expression":            true,
	"function_declaration":           true,
	"generator_function":             true,
	"generator_function_declaration": true,
}

// source holds file content and line offsets for position conversion.
type source struct {
	content    []byte
	lineStarts []int
}

func newSource(content []byte) *source {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &source{content: content, lineStarts: starts}
}

// position converts a byte offset to a line and UTF-16 column.
func (s *source) position(offset int) syntax.Position {
	line := sort.Search(len(s.lineStarts), func(i int) bool { return s.lineStarts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	col := 0
	for b := s.content[s.lineStarts[line]:offset]; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if n := utf16.RuneLen(r); n > 0 {
			col += n
		} else {
			col++
		}
		b = b[size:]
	}
	return syntax.Position{Line: line, Column: col, Offset: offset}
}

// node adapts a tree-sitter node to syntax.Node.
type node struct {
	n   *sitter.Node
	src *source
}

func wrap(n *sitter.Node, src *source) syntax.Node {
	if n == nil {
		return nil
	}
	return &node{n: n, src: src}
}

func (n *node) field(name string) syntax.Node {
	return wrap(n.n.ChildByFieldName(name), n.src)
}

// namedChildren returns the named children of sn, comments excluded.
func (n *node) namedChildren(sn *sitter.Node) []syntax.Node {
	if sn == nil {
		return nil
	}
	count := int(sn.NamedChildCount())
	out := make([]syntax.Node, 0, count)
	for i := 0; i < count; i++ {
		child := sn.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, wrap(child, n.src))
	}
	return out
}

func (n *node) Children() []syntax.Node {
	return n.namedChildren(n.n)
}

// argumentsType returns the node type of a call's arguments field.
func (n *node) argumentsType() string {
	if n.n.Type() != "call_expression" {
		return ""
	}
	args := n.n.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	return args.Type()
}

func (n *node) IsCallExpression() bool {
	return n.argumentsType() == "arguments"
}

func (n *node) Callee() syntax.Node {
	if n.n.Type() != "call_expression" {
		return nil
	}
	return n.field("function")
}

func (n *node) Arguments() []syntax.Node {
	if !n.IsCallExpression() {
		return nil
	}
	return n.namedChildren(n.n.ChildByFieldName("arguments"))
}

// Tagged templates share the call_expression node type; only the arguments
// field tells them apart.
func (n *node) IsTaggedTemplate() bool {
	return n.argumentsType() == "template_string"
}

func (n *node) Tag() syntax.Node {
	if !n.IsTaggedTemplate() {
		return nil
	}
	return n.field("function")
}

func (n *node) Template() syntax.Node {
	if !n.IsTaggedTemplate() {
		return nil
	}
	return n.field("arguments")
}

func (n *node) IsPropertyAccess() bool {
	return n.n.Type() == "member_expression"
}

func (n *node) PropertyName() string {
	if !n.IsPropertyAccess() {
		return ""
	}
	prop := n.n.ChildByFieldName("property")
	if prop == nil {
		return ""
	}
	return prop.Content(n.src.content)
}

func (n *node) IsStringLiteral() bool {
	return n.n.Type() == "string"
}

func (n *node) IsTemplateLiteral() bool {
	return n.n.Type() == "template_string"
}

func (n *node) IsFunctionLike() bool {
	return functionTypes[n.n.Type()]
}

func (n *node) Parameters() []syntax.Node {
	if !n.IsFunctionLike() {
		return nil
	}
	// x => ... has a bare parameter field instead of formal_parameters.
	if p := n.n.ChildByFieldName("parameter"); p != nil {
		return []syntax.Node{wrap(p, n.src)}
	}
	return n.namedChildren(n.n.ChildByFieldName("parameters"))
}

func (n *node) Text() string {
	return n.n.Content(n.src.content)
}

func (n *node) Span() syntax.Span {
	return syntax.Span{
		Start: n.src.position(int(n.n.StartByte())),
		End:   n.src.position(int(n.n.EndByte())),
	}
}
