package funcindex

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
)

// GoAnalyzer indexes Go sources with the standard go/parser.
// Methods are named "Type.Method"; function literals are anonymous.
type GoAnalyzer struct{}

// NewGoAnalyzer creates a Go analyzer.
func NewGoAnalyzer() *GoAnalyzer {
	return &GoAnalyzer{}
}

// Analyze implements Analyzer.
func (GoAnalyzer) Analyze(_ context.Context, path string, source []byte) ([]Span, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var spans []Span
	ast.Inspect(file, func(n ast.Node) bool {
		switch fn := n.(type) {
		case *ast.FuncDecl:
			if fn.Body == nil {
				return false
			}
			name := fn.Name.Name
			if recv := receiverName(fn); recv != "" {
				name = recv + "." + name
			}
			spans = append(spans, Span{
				Name:      name,
				StartLine: fset.Position(fn.Pos()).Line,
				EndLine:   fset.Position(fn.End()).Line,
			})
		case *ast.FuncLit:
			spans = append(spans, Span{
				StartLine: fset.Position(fn.Pos()).Line,
				EndLine:   fset.Position(fn.End()).Line,
				Anonymous: true,
			})
		}
		return true
	})
	return spans, nil
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
