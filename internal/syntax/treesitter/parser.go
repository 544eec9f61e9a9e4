// Package treesitter implements syntax.Node on top of tree-sitter's
// JavaScript, TypeScript and TSX grammars.
package treesitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"eachfmt/internal/logging"
	"eachfmt/internal/syntax"

	"github.com/go-enry/go-enry/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported grammar. Values match editor language ids.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "typescriptreact"
)

var extLanguages = map[string]Language{
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
}

// SupportedExtensions returns the file extensions with a known grammar.
func SupportedExtensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".tsx"}
}

// LanguageFor picks the grammar for a file: by extension first, then by
// go-enry detection (shebangs, content heuristics). ok is false for anything
// that is not JavaScript or TypeScript.
func LanguageFor(path string, content []byte) (lang Language, ok bool) {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang, true
	}
	switch enry.GetLanguage(filepath.Base(path), content) {
	case "JavaScript":
		return JavaScript, true
	case "TypeScript":
		return TypeScript, true
	case "TSX":
		return TSX, true
	}
	return "", false
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Tree is a parsed source file. Close releases the tree-sitter memory.
type Tree struct {
	tree *sitter.Tree
	src  *source
}

// Root returns the root node of the tree.
func (t *Tree) Root() syntax.Node {
	return wrap(t.tree.RootNode(), t.src)
}

// HasErrors reports whether the parser had to recover from syntax errors.
func (t *Tree) HasErrors() bool {
	return t.tree.RootNode().HasError()
}

// Close releases the tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Parse parses content with the grammar for lang. A tree-sitter parser is not
// safe for concurrent use, so each call gets its own.
func Parse(ctx context.Context, lang Language, content []byte) (*Tree, error) {
	start := time.Now()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}

	t := &Tree{tree: tree, src: newSource(content)}
	if t.HasErrors() {
		logging.Get(logging.CategoryLocate).Warn("tree-sitter recovered from syntax errors (%s, %d bytes)", lang, len(content))
	}
	logging.LocateDebug("parsed %d bytes as %s in %v", len(content), lang, time.Since(start))
	return t, nil
}

// ParseFile parses content using the grammar chosen by LanguageFor.
func ParseFile(ctx context.Context, path string, content []byte) (*Tree, error) {
	lang, ok := LanguageFor(path, content)
	if !ok {
		return nil, fmt.Errorf("%s: not a JavaScript or TypeScript file", path)
	}
	return Parse(ctx, lang, content)
}
