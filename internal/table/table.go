// Package table aligns the pipe-delimited data tables found in test.each
// template literals.
//
// A table is split into rows on "\n" and into cells on "|". Every cell is
// trimmed and right-padded to the widest cell of its column, then the row is
// re-joined with " | ". Widths are measured in UTF-16 code units, the unit
// editors use for columns, with characters outside U+0020-U+007F inflated by
// a configurable ratio so that double-width glyphs line up.
package table

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf16"
)

// separator joins cells in the formatted output.
const separator = " | "

// Block is the logical shape of one template literal: rows of trimmed cells.
// Rows may have different cell counts. A blank or whitespace-only line is a
// row with no cells.
type Block [][]string

// Widths maps a 0-based column index to the widest display width found in
// that column across all rows of a Block.
type Widths []int

// Parse splits raw template text into rows and cells.
func Parse(raw string) Block {
	lines := strings.Split(raw, "\n")
	block := make(Block, len(lines))
	for i, line := range lines {
		if trim(line) == "" {
			continue
		}
		cells := strings.Split(line, "|")
		for j, cell := range cells {
			cells[j] = trim(cell)
		}
		block[i] = cells
	}
	return block
}

// DisplayWidth returns the alignment width of cell for the given character
// width ratio:
//
//	len(cell) + floor(wide(cell) * (1/ratio - 1))
//
// where wide counts the code units outside U+0020-U+007F. A ratio of 1 leaves
// wide characters at width 1; 0.5 counts them as 2. Ratios rejected by
// ValidRatio disable the adjustment. The result is never negative.
func DisplayWidth(cell string, ratio float64) int {
	length, wide := measure(trim(cell))
	if wide == 0 || !ValidRatio(ratio) {
		return length
	}
	return max(0, length+int(math.Floor(float64(wide)*(1/ratio-1))))
}

// MinRatio is the smallest accepted character width ratio. A wide character
// then counts as at most 100 columns.
const MinRatio = 0.01

// ValidRatio reports whether ratio can be used as a character width ratio.
// NaN is rejected.
func ValidRatio(ratio float64) bool {
	return ratio >= MinRatio
}

// ColumnWidths computes the per-column maximum display width of block.
// Columns absent from a row contribute nothing for that row.
func ColumnWidths(block Block, ratio float64) Widths {
	var widths Widths
	for _, row := range block {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, make(Widths, i-len(widths)+1)...)
			}
			if w := DisplayWidth(cell, ratio); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// Format re-emits raw as an aligned table. Every row after the first is
// prefixed with indent, and the whole result is trimmed.
func Format(indent, raw string, ratio float64) string {
	block := Parse(raw)
	widths := ColumnWidths(block, ratio)

	var b strings.Builder
	b.Grow(len(raw))
	for i, row := range block {
		for j, cell := range row {
			if j > 0 {
				b.WriteString(separator)
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[j]-DisplayWidth(cell, ratio)))
		}
		if i < len(block)-1 {
			b.WriteByte('\n')
			b.WriteString(indent)
		}
	}
	return trim(b.String())
}

// Changed reports whether formatting raw would alter it.
func Changed(indent, raw string, ratio float64) bool {
	return Format(indent, raw, ratio) != raw
}

// measure returns the UTF-16 length of s and how many of those code units
// fall outside printable ASCII.
func measure(s string) (length, wide int) {
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		length += n
		if r < 0x20 || r > 0x7f {
			wide += n
		}
	}
	return length, wide
}

// trim strips the same whitespace set as ECMAScript String.prototype.trim:
// Unicode white space plus BOM, excluding NEL.
func trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}
