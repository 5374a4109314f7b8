//go:build !cgo

package funcindex

import (
	"context"
	"errors"
)

// ErrNoCGO is returned for tree-sitter languages in builds without cgo.
var ErrNoCGO = errors.New("function indexing for this language requires CGO (tree-sitter)")

// TreeSitterAvailable reports whether tree-sitter analyzers are compiled in.
const TreeSitterAvailable = false

var treeSitterLanguages = []Language{
	LangPHP, LangJavaScript, LangTypeScript, LangTSX,
	LangPython, LangRust, LangJava, LangKotlin,
}

// registerTreeSitter installs analyzers that always fail with ErrNoCGO, so
// those files degrade to the empty index with a clear reason.
func registerTreeSitter(f *Factory) {
	unavailable := AnalyzerFunc(func(context.Context, string, []byte) ([]Span, error) {
		return nil, ErrNoCGO
	})
	for _, lang := range treeSitterLanguages {
		f.Register(lang, unavailable)
	}
}
