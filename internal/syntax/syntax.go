// Package syntax defines the syntax tree capability the locator walks.
//
// The locator never talks to a parser directly. Any parser that can answer
// the predicates of Node (call, tagged template, property access, string and
// template literals, function-like values) and report source text and spans
// can drive it. The tree-sitter implementation lives in syntax/treesitter.
package syntax

import "fmt"

// Position is a location in a source file.
type Position struct {
	Line   int // 0-based line
	Column int // 0-based column in UTF-16 code units
	Offset int // byte offset from the start of the file
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Span is the half-open source range [Start, End).
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// Node is one node of a host-language syntax tree.
//
// Accessors that do not apply to the node's kind return nil (or "" / 0).
type Node interface {
	// Children returns the node's children in source order.
	Children() []Node

	// IsCallExpression reports whether the node is a regular call, f(args).
	IsCallExpression() bool
	// Callee is the called expression of a call expression.
	Callee() Node
	// Arguments are the call arguments, comments excluded.
	Arguments() []Node

	// IsTaggedTemplate reports whether the node is tag`template`.
	IsTaggedTemplate() bool
	// Tag is the tag expression of a tagged template.
	Tag() Node
	// Template is the template literal of a tagged template.
	Template() Node

	// IsPropertyAccess reports whether the node is obj.name.
	IsPropertyAccess() bool
	// PropertyName is the accessed name of a property access.
	PropertyName() string

	IsStringLiteral() bool
	// IsTemplateLiteral covers both static templates and templates with
	// substitutions.
	IsTemplateLiteral() bool

	// IsFunctionLike reports arrow functions, function expressions and
	// function declarations.
	IsFunctionLike() bool
	// Parameters are the declared parameters of a function-like node.
	Parameters() []Node

	// Text is the node's source text.
	Text() string
	// Span is the node's source range, leading trivia excluded.
	Span() Span
}

// Walk visits root and its descendants depth-first in pre-order. When visit
// returns false the node's children are skipped and the walk moves on to
// its next sibling.
func Walk(root Node, visit func(Node) bool) {
	if root == nil || !visit(root) {
		return
	}
	for _, child := range root.Children() {
		Walk(child, visit)
	}
}
