// Package workspace expands command-line paths into the set of JavaScript and
// TypeScript files to format.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"eachfmt/internal/logging"
	"eachfmt/internal/syntax/treesitter"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// File is a discovered source file.
type File struct {
	Path     string
	Language treesitter.Language
}

// Matcher filters slash-separated relative paths by include and exclude
// globs. An empty include list matches everything.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewMatcher compiles the patterns. A pattern starting with "**/" also
// matches paths with no leading directory.
func NewMatcher(include, exclude []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.include, err = compile(include); err != nil {
		return nil, err
	}
	if m.exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	return m, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		alts := []string{p}
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			alts = append(alts, rest)
		}
		for _, alt := range alts {
			g, err := glob.Compile(alt, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
			out = append(out, g)
		}
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Excluded reports whether rel matches an exclude pattern.
func (m *Matcher) Excluded(rel string) bool {
	return matchAny(m.exclude, filepath.ToSlash(rel))
}

// Match reports whether rel is included and not excluded.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if matchAny(m.exclude, rel) {
		return false
	}
	return len(m.include) == 0 || matchAny(m.include, rel)
}

// Discover expands paths into supported source files, sorted and without
// duplicates. Directories are walked and filtered by m, matched relative to
// the directory given. Files named explicitly skip the include list but still
// honor excludes, and may be detected by content when the extension is
// unknown. No paths means the current directory.
func Discover(paths []string, m *Matcher) ([]File, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if m == nil {
		m = &Matcher{}
	}

	seen := make(map[string]bool)
	var files []File
	add := func(path string, lang treesitter.Language) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, File{Path: path, Language: lang})
	}

	var result *multierror.Error
	for _, arg := range paths {
		info, err := os.Stat(arg)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		if !info.IsDir() {
			if m.Excluded(filepath.Clean(arg)) {
				continue
			}
			content, err := os.ReadFile(arg)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			lang, ok := treesitter.LanguageFor(arg, content)
			if !ok {
				result = multierror.Append(result, fmt.Errorf("%s: not a JavaScript or TypeScript file", arg))
				continue
			}
			add(arg, lang)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && (skipDirs[d.Name()] || m.Excluded(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !m.Match(rel) {
				return nil
			}
			lang, ok := treesitter.LanguageFor(path, nil)
			if !ok {
				return nil
			}
			add(path, lang)
			return nil
		})
		if err != nil && !errors.Is(err, fs.SkipAll) {
			result = multierror.Append(result, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	logging.RunnerDebug("discovered %d file(s) under %d path(s)", len(files), len(paths))
	return files, result.ErrorOrNil()
}
