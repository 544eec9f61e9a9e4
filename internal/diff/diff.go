// Package diff renders the change a formatting run would make as a unified
// diff, using sergi/go-diff for the line alignment.
package diff

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

const cacheSize = 256

// Line represents a single line in the diff
type Line struct {
	Content string
	Type    LineType

	// NoNewline marks the last line of a file that lacks a trailing newline.
	NoNewline bool
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// Empty reports whether the two sides are identical.
func (fd *FileDiff) Empty() bool {
	return len(fd.Hunks) == 0
}

// Differ computes line diffs and caches them by content hash.
type Differ struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
	cache   *lru.Cache[cacheKey, []Hunk]
}

type cacheKey struct {
	oldHash uint64
	newHash uint64
}

// NewDiffer creates a Differ showing contextLines of context around changes.
func NewDiffer(contextLines int) *Differ {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact diffs; inputs are single source files
	cache, _ := lru.New[cacheKey, []Hunk](cacheSize)
	return &Differ{dmp: dmp, context: contextLines, cache: cache}
}

var defaultDiffer = NewDiffer(DefaultContext)

// Compute diffs oldContent against newContent with the default differ.
func Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return defaultDiffer.Compute(oldPath, newPath, oldContent, newContent)
}

// Compute diffs oldContent against newContent.
func (d *Differ) Compute(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fd := &FileDiff{OldPath: oldPath, NewPath: newPath}
	if oldContent == newContent {
		return fd
	}

	key := cacheKey{xxhash.Sum64String(oldContent), xxhash.Sum64String(newContent)}
	if hunks, ok := d.cache.Get(key); ok {
		fd.Hunks = hunks
		return fd
	}

	a, b, lines := d.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := d.dmp.DiffMain(a, b, false)
	diffs = d.dmp.DiffCharsToLines(diffs, lines)

	fd.Hunks = group(operations(diffs), d.context)
	d.cache.Add(key, fd.Hunks)
	return fd
}

// op is one line of the aligned file pair. oldBefore and newBefore count the
// lines on each side that precede it.
type op struct {
	typ       LineType
	content   string
	noNewline bool
	oldBefore int
	newBefore int
}

// operations flattens line-mode diffs into one op per line.
func operations(diffs []diffmatchpatch.Diff) []op {
	var ops []op
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			o := op{
				content:   strings.TrimSuffix(line, "\n"),
				noNewline: !strings.HasSuffix(line, "\n"),
				oldBefore: oldN,
				newBefore: newN,
			}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				o.typ = LineContext
				oldN++
				newN++
			case diffmatchpatch.DiffDelete:
				o.typ = LineRemoved
				oldN++
			case diffmatchpatch.DiffInsert:
				o.typ = LineAdded
				newN++
			}
			ops = append(ops, o)
		}
	}
	return ops
}

// group cuts ops into hunks. Changes separated by at most 2*context unchanged
// lines share a hunk.
func group(ops []op, context int) []Hunk {
	var hunks []Hunk
	for i := 0; i < len(ops); {
		if ops[i].typ == LineContext {
			i++
			continue
		}
		start := max(0, i-context)

		// Extend through changes until the run of context lines is too long.
		end, gap := i, 0
		for j := i; j < len(ops); j++ {
			if ops[j].typ != LineContext {
				end, gap = j, 0
				continue
			}
			gap++
			if gap > 2*context {
				break
			}
		}
		stop := min(len(ops), end+context+1)

		hunks = append(hunks, newHunk(ops[start:stop]))
		i = stop
	}
	return hunks
}

func newHunk(ops []op) Hunk {
	h := Hunk{Lines: make([]Line, 0, len(ops))}
	for _, o := range ops {
		h.Lines = append(h.Lines, Line{Content: o.content, Type: o.typ, NoNewline: o.noNewline})
		if o.typ != LineAdded {
			h.OldCount++
		}
		if o.typ != LineRemoved {
			h.NewCount++
		}
	}
	// Unified diffs report the line before an empty side.
	h.OldStart = ops[0].oldBefore
	if h.OldCount > 0 {
		h.OldStart++
	}
	h.NewStart = ops[0].newBefore
	if h.NewCount > 0 {
		h.NewStart++
	}
	return h
}

// Unified renders the diff in unified format. With colorize set, headers,
// additions and removals are colored regardless of the terminal.
func (fd *FileDiff) Unified(colorize bool) string {
	if fd.Empty() {
		return ""
	}
	header := color.New(color.Bold)
	hunkHdr := color.New(color.FgCyan)
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	for _, c := range []*color.Color{header, hunkHdr, added, removed} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var b strings.Builder
	header.Fprintf(&b, "--- a/%s\n", fd.OldPath)
	header.Fprintf(&b, "+++ b/%s\n", fd.NewPath)
	for _, h := range fd.Hunks {
		hunkHdr.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added.Fprintf(&b, "+%s\n", l.Content)
			case LineRemoved:
				removed.Fprintf(&b, "-%s\n", l.Content)
			default:
				fmt.Fprintf(&b, " %s\n", l.Content)
			}
			if l.NoNewline {
				b.WriteString("\\ No newline at end of file\n")
			}
		}
	}
	return b.String()
}
