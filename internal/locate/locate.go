// Package locate finds test.each data tables in a syntax tree.
//
// A site is a call of the shape
//
//	test.each`
//	  a | b
//	  ${1} | ${2}
//	`('name $a', ({ a, b }) => { ... })
//
// i.e. a call whose callee is a template tagged with a property access named
// "each", whose first argument is a string or template literal and whose
// second argument is a function taking exactly one parameter.
package locate

import (
	"errors"
	"fmt"
	"strings"

	"eachfmt/internal/logging"
	"eachfmt/internal/syntax"
)

// eachName is the property name that marks a data-table tag.
const eachName = "each"

var (
	// ErrInvalidEachName is returned when the first argument of an each-call
	// is missing or is not a string or template literal.
	ErrInvalidEachName = errors.New("invalid each-name argument")

	// ErrInvalidEachBody is returned when the second argument of an each-call
	// is missing or is not a function with exactly one parameter.
	ErrInvalidEachBody = errors.New("invalid each-body argument")
)

// Fragment is a piece of source text with its range.
type Fragment struct {
	Text string
	Span syntax.Span
}

// Site is one located each-call.
type Site struct {
	// Indent is the re-indentation prefix: as many spaces as the column the
	// call starts at.
	Indent string
	// Template is the tagged template literal, backticks included.
	Template Fragment
	// Name is the test name argument.
	Name Fragment
	// Param is the single parameter of the test body.
	Param Fragment
}

// Locate walks root and returns every each-call in pre-order. The children of
// a matching call are not searched. A malformed each-call aborts the walk and
// no sites are returned.
func Locate(root syntax.Node) ([]Site, error) {
	var (
		sites []Site
		err   error
	)
	syntax.Walk(root, func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		if !isEachCall(n) {
			return true
		}
		var site Site
		site, err = capture(n)
		if err == nil {
			sites = append(sites, site)
		}
		return false
	})
	if err != nil {
		logging.LocateDebug("locate aborted: %v", err)
		return nil, err
	}
	logging.LocateDebug("located %d each-call(s)", len(sites))
	return sites, nil
}

// isEachCall matches call(tag`...`) where tag is a property access of each.
func isEachCall(n syntax.Node) bool {
	if !n.IsCallExpression() {
		return false
	}
	callee := n.Callee()
	if callee == nil || !callee.IsTaggedTemplate() {
		return false
	}
	tag := callee.Tag()
	return tag != nil && tag.IsPropertyAccess() && tag.PropertyName() == eachName
}

// capture validates the arguments of a matched call and extracts its site.
func capture(call syntax.Node) (Site, error) {
	at := call.Span().Start
	args := call.Arguments()

	if len(args) < 1 || !(args[0].IsStringLiteral() || args[0].IsTemplateLiteral()) {
		return Site{}, fmt.Errorf("%w at %s", ErrInvalidEachName, at)
	}
	name := args[0]

	if len(args) < 2 || !args[1].IsFunctionLike() || len(args[1].Parameters()) != 1 {
		return Site{}, fmt.Errorf("%w at %s", ErrInvalidEachBody, at)
	}
	param := args[1].Parameters()[0]

	template := call.Callee().Template()
	if template == nil {
		return Site{}, fmt.Errorf("each-call without template at %s", at)
	}

	return Site{
		Indent:   strings.Repeat(" ", at.Column),
		Template: fragment(template),
		Name:     fragment(name),
		Param:    fragment(param),
	}, nil
}

func fragment(n syntax.Node) Fragment {
	return Fragment{Text: n.Text(), Span: n.Span()}
}
