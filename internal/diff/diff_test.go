package diff

import (
	"fmt"
	"strings"
	"testing"
)

func TestCompute_SimpleAddition(t *testing.T) {
	oldContent := "line1\nline2\nline3"
	newContent := "line1\nline2\nline2.5\nline3"

	d := NewDiffer(DefaultContext)
	fd := d.Compute("old.txt", "new.txt", oldContent, newContent)

	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(fd.Hunks))
	}
	h := fd.Hunks[0]
	if h.OldStart != 1 || h.OldCount != 3 || h.NewStart != 1 || h.NewCount != 4 {
		t.Errorf("Unexpected hunk header: -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}

	hasAddition := false
	for _, line := range h.Lines {
		if line.Type == LineAdded && line.Content == "line2.5" {
			hasAddition = true
		}
	}
	if !hasAddition {
		t.Error("Expected to find added line 'line2.5'")
	}
}

func TestCompute_SimpleDeletion(t *testing.T) {
	fd := Compute("a.js", "a.js", "line1\nline2\nline3\nline4", "line1\nline2\nline4")

	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(fd.Hunks))
	}
	h := fd.Hunks[0]
	if h.OldCount != 4 || h.NewCount != 3 {
		t.Errorf("Expected -1,4 +1,3, got -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
	removed := 0
	for _, line := range h.Lines {
		if line.Type == LineRemoved {
			removed++
			if line.Content != "line3" {
				t.Errorf("Unexpected removed line %q", line.Content)
			}
		}
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed line, got %d", removed)
	}
}

func TestCompute_FromEmpty(t *testing.T) {
	fd := Compute("a.js", "a.js", "", "a\nb\n")

	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(fd.Hunks))
	}
	h := fd.Hunks[0]
	if h.OldStart != 0 || h.OldCount != 0 || h.NewStart != 1 || h.NewCount != 2 {
		t.Errorf("Unexpected hunk header: -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
}

func TestCompute_NoChanges(t *testing.T) {
	content := "line1\nline2\nline3"
	fd := Compute("a.js", "a.js", content, content)

	if !fd.Empty() {
		t.Errorf("Expected no hunks for identical content, got %d", len(fd.Hunks))
	}
	if fd.Unified(false) != "" {
		t.Error("Expected empty rendering for identical content")
	}
}

func numbered(n int, replace map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if r, ok := replace[i]; ok {
			b.WriteString(r)
		} else {
			fmt.Fprintf(&b, "l%d", i)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestCompute_MultipleHunks(t *testing.T) {
	oldContent := numbered(20, nil)
	newContent := numbered(20, map[int]string{2: "L2", 18: "L18"})

	fd := Compute("a.js", "a.js", oldContent, newContent)

	if len(fd.Hunks) != 2 {
		t.Fatalf("Expected 2 hunks for distant changes, got %d", len(fd.Hunks))
	}
	first, second := fd.Hunks[0], fd.Hunks[1]
	if first.OldStart != 1 || first.OldCount != 5 || first.NewCount != 5 {
		t.Errorf("Unexpected first hunk: -%d,%d +%d,%d", first.OldStart, first.OldCount, first.NewStart, first.NewCount)
	}
	if second.OldStart != 15 || second.OldCount != 6 || second.NewStart != 15 || second.NewCount != 6 {
		t.Errorf("Unexpected second hunk: -%d,%d +%d,%d", second.OldStart, second.OldCount, second.NewStart, second.NewCount)
	}
}

func TestCompute_NearbyChangesShareAHunk(t *testing.T) {
	oldContent := numbered(20, nil)
	newContent := numbered(20, map[int]string{5: "L5", 10: "L10"})

	fd := Compute("a.js", "a.js", oldContent, newContent)
	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected changes four lines apart to share a hunk, got %d hunks", len(fd.Hunks))
	}
}

func TestCompute_ContextLines(t *testing.T) {
	oldContent := numbered(10, nil)
	newContent := numbered(10, map[int]string{5: "L5"})

	fd := NewDiffer(1).Compute("a.js", "a.js", oldContent, newContent)
	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(fd.Hunks))
	}

	context := 0
	for _, line := range fd.Hunks[0].Lines {
		if line.Type == LineContext {
			context++
		}
	}
	if context != 2 {
		t.Errorf("Expected 2 context lines, got %d", context)
	}
}

func TestCompute_Caching(t *testing.T) {
	d := NewDiffer(DefaultContext)
	first := d.Compute("a.js", "a.js", "a\nb\n", "a\nc\n")
	second := d.Compute("b.js", "b.js", "a\nb\n", "a\nc\n")

	if d.cache.Len() != 1 {
		t.Errorf("Expected 1 cached entry, got %d", d.cache.Len())
	}
	if len(first.Hunks) != len(second.Hunks) {
		t.Error("Cached diff differs from computed diff")
	}
	if second.OldPath != "b.js" {
		t.Errorf("Cached diff must carry the caller's path, got %q", second.OldPath)
	}
}

func TestUnified(t *testing.T) {
	fd := Compute("math.test.js", "math.test.js", "line1\nline2\nline3", "line1\nline2\nline2.5\nline3")

	want := "--- a/math.test.js\n" +
		"+++ b/math.test.js\n" +
		"@@ -1,3 +1,4 @@\n" +
		" line1\n" +
		" line2\n" +
		"+line2.5\n" +
		" line3\n" +
		"\\ No newline at end of file\n"
	if got := fd.Unified(false); got != want {
		t.Errorf("Unified output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestUnified_Colorized(t *testing.T) {
	fd := Compute("a.js", "a.js", "x\ny\n", "x\nz\n")

	out := fd.Unified(true)
	if !strings.Contains(out, "\x1b[32m+z") {
		t.Errorf("Expected green addition, got %q", out)
	}
	if !strings.Contains(out, "\x1b[31m-y") {
		t.Errorf("Expected red removal, got %q", out)
	}
	if strings.Contains(fd.Unified(false), "\x1b[") {
		t.Error("Plain output must not contain escape sequences")
	}
}

func TestCompute_TrailingWhitespaceChange(t *testing.T) {
	fd := Compute("a.js", "a.js", "test.each`\na|b\n`\n", "test.each`\na | b\n`\n")

	if len(fd.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(fd.Hunks))
	}
	var added, removed []string
	for _, line := range fd.Hunks[0].Lines {
		switch line.Type {
		case LineAdded:
			added = append(added, line.Content)
		case LineRemoved:
			removed = append(removed, line.Content)
		}
	}
	if len(added) != 1 || added[0] != "a | b" {
		t.Errorf("Unexpected added lines %q", added)
	}
	if len(removed) != 1 || removed[0] != "a|b" {
		t.Errorf("Unexpected removed lines %q", removed)
	}
}

func TestUnified_NoNewlineAtEndOfFile(t *testing.T) {
	tests := []struct {
		name       string
		old, new   string
		want       string
		wantMarker int
	}{
		{
			name:       "both sides unterminated",
			old:        "x\na|b",
			new:        "x\na | b",
			want:       "-a|b\n\\ No newline at end of file\n+a | b\n\\ No newline at end of file\n",
			wantMarker: 2,
		},
		{
			name:       "newline added",
			old:        "x\ny",
			new:        "x\ny\n",
			want:       "-y\n\\ No newline at end of file\n+y\n",
			wantMarker: 1,
		},
		{
			name:       "newline removed",
			old:        "x\ny\n",
			new:        "x\ny",
			want:       "-y\n+y\n\\ No newline at end of file\n",
			wantMarker: 1,
		},
		{
			name: "terminated files",
			old:  "x\na|b\n",
			new:  "x\na | b\n",
			want: "-a|b\n+a | b\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Compute("a.js", "a.js", tt.old, tt.new).Unified(false)
			if !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in:\n%s", tt.want, out)
			}
			if n := strings.Count(out, "No newline at end of file"); n != tt.wantMarker {
				t.Errorf("Expected %d markers, got %d in:\n%s", tt.wantMarker, n, out)
			}
		})
	}
}
