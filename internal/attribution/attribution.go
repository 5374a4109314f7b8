// Package attribution maps the changed lines of a parsed diff to the files
// and named functions they touch.
package attribution

import (
	"context"
	"log/slog"

	"bugminer/internal/diff"
	"bugminer/internal/errors"
	"bugminer/internal/funcindex"
)

// IndexFactory builds a function index for a root-relative path as it is
// currently checked out.
type IndexFactory interface {
	// Supports reports whether ForFile has an analyzer for path.
	Supports(path string) bool
	ForFile(ctx context.Context, path string) (funcindex.Index, error)
}

// PathSet is a set of root-relative slash paths.
type PathSet map[string]struct{}

// NewPathSet builds a set from paths.
func NewPathSet(paths []string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether path is in the set.
func (s PathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Result holds the distinct changed files and functions, in first-seen order.
type Result struct {
	Files     []string
	Functions []string
}

// Attributor attributes diff entries using an index factory.
type Attributor struct {
	factory IndexFactory
	logger  *slog.Logger
}

// New creates an Attributor.
func New(factory IndexFactory, logger *slog.Logger) *Attributor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Attributor{factory: factory, logger: logger}
}

// Attribute walks entries whose from-path is in relevant. Each such file is
// recorded as changed and every added or removed line is looked up in the
// file's index. A file in a language without an analyzer, or whose index
// fails with a recoverable error, still counts as changed. Any other index
// error stops the walk and is returned.
func (a *Attributor) Attribute(ctx context.Context, entries []diff.Entry, relevant PathSet) (Result, error) {
	var res Result
	seenFiles := make(map[string]bool)
	seenFuncs := make(map[string]bool)

	for _, entry := range entries {
		path := diff.StripPrefix(entry.FromPath)
		if !relevant.Has(path) {
			continue
		}
		if !seenFiles[path] {
			seenFiles[path] = true
			res.Files = append(res.Files, path)
		}

		if !a.factory.Supports(path) {
			a.logger.Debug("No analyzer for file, attributing file only", "path", path)
			continue
		}

		idx, err := a.factory.ForFile(ctx, path)
		if err != nil {
			if !errors.IsRecoverable(err) {
				return res, err
			}
			a.logger.Warn("Function index unavailable, attributing file only",
				"path", path,
				"error", err,
			)
		}
		if idx == nil {
			idx = funcindex.Empty
		}

		for _, hunk := range entry.Hunks {
			WalkHunk(hunk, func(line int, t diff.LineType) {
				if t == diff.Unchanged {
					return
				}
				name, ok := idx.FunctionAt(line)
				if ok && !seenFuncs[name] {
					seenFuncs[name] = true
					res.Functions = append(res.Functions, name)
				}
			})
		}
	}
	return res, nil
}

// WalkHunk calls visit for every line of h with the post-image line number
// it occupies. The counter starts at the hunk's start line and advances
// after every line that is not removed, so a removed line and the added
// line that follows it share a number.
func WalkHunk(h diff.Hunk, visit func(line int, t diff.LineType)) {
	counter := h.StartLine
	for _, l := range h.Lines {
		visit(counter, l.Type)
		if l.Type != diff.Removed {
			counter++
		}
	}
}
