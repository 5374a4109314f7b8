package funcindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bugminer/internal/errors"
	"bugminer/internal/paths"
)

// Analyzer extracts function spans from one file's source.
type Analyzer interface {
	Analyze(ctx context.Context, path string, source []byte) ([]Span, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, path string, source []byte) ([]Span, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, path string, source []byte) ([]Span, error) {
	return f(ctx, path, source)
}

// Factory builds indexes for files under a work-tree root, choosing the
// analyzer by file extension.
type Factory struct {
	root      string
	analyzers map[Language]Analyzer
	logger    *slog.Logger
}

// NewFactory creates a factory reading files relative to root, with the Go
// analyzer and (when built with cgo) the tree-sitter analyzers registered.
func NewFactory(root string, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &Factory{
		root:      root,
		analyzers: make(map[Language]Analyzer),
		logger:    logger,
	}
	f.Register(LangGo, NewGoAnalyzer())
	registerTreeSitter(f)
	return f
}

// Register installs or replaces the analyzer for a language.
func (f *Factory) Register(lang Language, a Analyzer) {
	f.analyzers[lang] = a
}

// Supports reports whether an analyzer is registered for path's extension.
func (f *Factory) Supports(path string) bool {
	lang, ok := LanguageFromExtension(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return false
	}
	_, ok = f.analyzers[lang]
	return ok
}

// ForFile reads path (relative to the root) as currently checked out and
// indexes it. On any failure it returns Empty together with a
// STRUCTURAL_ANALYSIS error; callers may log the error and keep going.
// Cancellation of ctx is reported as CANCELLED instead.
func (f *Factory) ForFile(ctx context.Context, path string) (Index, error) {
	if err := ctx.Err(); err != nil {
		return Empty, cancelledError(path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := LanguageFromExtension(ext)
	if !ok {
		return Empty, analysisError(path, fmt.Errorf("unsupported file extension %q", ext))
	}
	analyzer, ok := f.analyzers[lang]
	if !ok {
		return Empty, analysisError(path, fmt.Errorf("no analyzer registered for %s", lang))
	}

	full := paths.JoinRepoPath(f.root, path)
	if !paths.IsWithinRepo(full, f.root) {
		return Empty, analysisError(path, fmt.Errorf("path resolves outside the work tree"))
	}
	source, err := os.ReadFile(full)
	if err != nil {
		return Empty, analysisError(path, err)
	}

	spans, err := analyzer.Analyze(ctx, path, source)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return Empty, cancelledError(path, cerr)
		}
		return Empty, analysisError(path, err)
	}

	f.logger.Debug("Indexed file",
		"path", path,
		"language", string(lang),
		"functions", len(spans),
	)
	return NewSpanIndex(spans), nil
}

func analysisError(path string, cause error) error {
	return errors.NewMinerError(errors.StructuralAnalysis, "Failed to analyze file", cause, nil).
		WithDetails(map[string]interface{}{"path": path})
}

func cancelledError(path string, cause error) error {
	return errors.NewMinerError(errors.Cancelled, "File analysis cancelled", cause, nil).
		WithDetails(map[string]interface{}{"path": path})
}
