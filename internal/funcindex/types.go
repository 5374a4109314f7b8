// Package funcindex answers "which named function encloses this line?" for
// one snapshot of a source file, with one analyzer per language.
package funcindex

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangPHP        Language = "php"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".php", ".phtml":
		return LangPHP, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// Span is the physical line range of one function body.
// Lines are 1-based and inclusive.
type Span struct {
	// Name is the qualified name; empty for anonymous functions.
	Name      string
	StartLine int
	EndLine   int
	Anonymous bool
}

func (s Span) contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}
