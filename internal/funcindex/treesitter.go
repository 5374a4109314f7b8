//go:build cgo

package funcindex

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterAvailable reports whether tree-sitter analyzers are compiled in.
const TreeSitterAvailable = true

// langSpec lists the node types that matter for one grammar.
type langSpec struct {
	named      []string
	anonymous  []string
	containers []string
	separator  string
}

var specs = map[Language]langSpec{
	LangPHP: {
		named:      []string{"function_definition", "method_declaration"},
		anonymous:  []string{"anonymous_function_creation_expression", "anonymous_function", "arrow_function"},
		containers: []string{"class_declaration", "interface_declaration", "trait_declaration", "enum_declaration"},
		separator:  "::",
	},
	LangJavaScript: {
		named:      []string{"function_declaration", "generator_function_declaration", "method_definition"},
		anonymous:  []string{"function_expression", "function", "arrow_function", "generator_function"},
		containers: []string{"class_declaration", "class"},
		separator:  ".",
	},
	LangTypeScript: {
		named:      []string{"function_declaration", "generator_function_declaration", "method_definition"},
		anonymous:  []string{"function_expression", "function", "arrow_function", "generator_function"},
		containers: []string{"class_declaration", "abstract_class_declaration", "class"},
		separator:  ".",
	},
	LangPython: {
		named:      []string{"function_definition"},
		anonymous:  []string{"lambda"},
		containers: []string{"class_definition"},
		separator:  ".",
	},
	LangRust: {
		named:      []string{"function_item"},
		anonymous:  []string{"closure_expression"},
		containers: []string{"impl_item", "trait_item"},
		separator:  "::",
	},
	LangJava: {
		named:      []string{"method_declaration", "constructor_declaration"},
		anonymous:  []string{"lambda_expression"},
		containers: []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"},
		separator:  ".",
	},
	LangKotlin: {
		named:      []string{"function_declaration"},
		anonymous:  []string{"lambda_literal", "anonymous_function"},
		containers: []string{"class_declaration", "object_declaration"},
		separator:  ".",
	},
}

func init() {
	specs[LangTSX] = specs[LangTypeScript]
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPHP:
		return php.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// TreeSitterAnalyzer indexes one language with its tree-sitter grammar.
type TreeSitterAnalyzer struct {
	lang   Language
	spec   langSpec
	parser *sitter.Parser
}

// NewTreeSitterAnalyzer creates an analyzer for lang.
func NewTreeSitterAnalyzer(lang Language) (*TreeSitterAnalyzer, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}
	p := sitter.NewParser()
	p.SetLanguage(tsLang)
	return &TreeSitterAnalyzer{lang: lang, spec: specs[lang], parser: p}, nil
}

// Analyze implements Analyzer. Not safe for concurrent use.
func (a *TreeSitterAnalyzer) Analyze(ctx context.Context, _ string, source []byte) ([]Span, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	var spans []Span
	a.walk(tree.RootNode(), source, nil, &spans)
	return spans, nil
}

func (a *TreeSitterAnalyzer) walk(node *sitter.Node, source []byte, scope []string, spans *[]Span) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	switch {
	case contains(a.spec.containers, nodeType):
		if name := a.containerName(node, source); name != "" {
			scope = append(scope[:len(scope):len(scope)], name)
		}
	case contains(a.spec.named, nodeType):
		if name := nodeName(node, source); name != "" {
			if len(scope) > 0 {
				name = strings.Join(scope, a.spec.separator) + a.spec.separator + name
			}
			*spans = append(*spans, spanOf(node, name, false))
		} else {
			*spans = append(*spans, spanOf(node, "", true))
		}
	case contains(a.spec.anonymous, nodeType):
		*spans = append(*spans, spanOf(node, "", true))
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		a.walk(node.Child(i), source, scope, spans)
	}
}

// containerName names a class-like node; Rust impl blocks use their type.
func (a *TreeSitterAnalyzer) containerName(node *sitter.Node, source []byte) string {
	if a.lang == LangRust && node.Type() == "impl_item" {
		if t := node.ChildByFieldName("type"); t != nil {
			name := t.Content(source)
			if i := strings.IndexByte(name, '<'); i >= 0 {
				name = name[:i]
			}
			return name
		}
	}
	return nodeName(node, source)
}

// nodeName returns the identifier naming node, or "" when it has none.
func nodeName(node *sitter.Node, source []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return n.Content(source)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "simple_identifier", "type_identifier", "name":
			return child.Content(source)
		}
	}
	return ""
}

func spanOf(node *sitter.Node, name string, anonymous bool) Span {
	return Span{
		Name:      name,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Anonymous: anonymous,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func registerTreeSitter(f *Factory) {
	for lang := range specs {
		a, err := NewTreeSitterAnalyzer(lang)
		if err != nil {
			continue
		}
		f.Register(lang, a)
	}
}
