// Package engine ties the locator and the table formatter together: it turns
// a syntax tree into a list of replacement instructions for one file.
package engine

import (
	"context"
	"fmt"
	"sort"

	"eachfmt/internal/config"
	"eachfmt/internal/locate"
	"eachfmt/internal/logging"
	"eachfmt/internal/syntax"
	"eachfmt/internal/syntax/treesitter"
	"eachfmt/internal/table"
)

// Edit replaces the source text in Range with Text.
type Edit struct {
	Range syntax.Span
	Text  string
}

// Result is the formatting outcome of one located site.
type Result struct {
	Site    locate.Site
	Text    string
	Changed bool
	Range   syntax.Span
}

// Plan is the set of edits for one file.
type Plan struct {
	Results []Result
	// Edits holds one entry per changed result, in source order.
	Edits []Edit
	// AllFormatted is true when no located table would change, including
	// when there are no tables at all.
	AllFormatted bool
}

// Build locates every each-call under root and formats it with the given
// settings snapshot. A locate error aborts the whole file.
func Build(root syntax.Node, settings config.Settings) (*Plan, error) {
	if !table.ValidRatio(settings.CharacterWidth) {
		return nil, fmt.Errorf("%w: characterWidth must be at least %v, got %v",
			config.ErrInvalidConfig, table.MinRatio, settings.CharacterWidth)
	}

	sites, err := locate.Locate(root)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Results: make([]Result, 0, len(sites)), AllFormatted: true}
	for _, site := range sites {
		text := table.Format(site.Indent, site.Template.Text, settings.CharacterWidth)
		res := Result{
			Site:    site,
			Text:    text,
			Changed: text != site.Template.Text,
			Range:   site.Template.Span,
		}
		plan.Results = append(plan.Results, res)
		plan.AllFormatted = plan.AllFormatted && !res.Changed
		if res.Changed {
			plan.Edits = append(plan.Edits, Edit{Range: res.Range, Text: res.Text})
		}
	}
	logging.FormatDebug("planned %d edit(s) for %d table(s)", len(plan.Edits), len(plan.Results))
	return plan, nil
}

// FormatSource parses content as the language of path and builds its plan.
func FormatSource(ctx context.Context, path string, content []byte, settings config.Settings) (*Plan, error) {
	tree, err := treesitter.ParseFile(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	plan, err := Build(tree.Root(), settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// Apply returns src with the plan's edits spliced in.
func (p *Plan) Apply(src []byte) ([]byte, error) {
	return ApplyEdits(src, p.Edits)
}

// ApplyEdits splices edits into src by byte offset. Edits may come in any
// order but must not overlap.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Offset < sorted[j].Range.Start.Offset
	})

	out := make([]byte, 0, len(src))
	last := 0
	for _, e := range sorted {
		start, end := e.Range.Start.Offset, e.Range.End.Offset
		if start < last || end < start || end > len(src) {
			return nil, fmt.Errorf("edit %s overlaps another edit or lies outside the source", e.Range)
		}
		out = append(out, src[last:start]...)
		out = append(out, e.Text...)
		last = end
	}
	return append(out, src[last:]...), nil
}
