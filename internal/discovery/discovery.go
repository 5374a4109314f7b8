// Package discovery lists the source files of a work tree that should be
// mined, filtered by name globs and excluded directories.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bugminer/internal/paths"
)

// DefaultNames is used when no include glob is given.
var DefaultNames = []string{"*.php"}

// Finder finds files under Root.
//
// Names and NamesExclude are globs. A glob without a slash matches a file's
// base name; one with a slash matches the root-relative path and may use
// "**" to span directories. ExcludeDirs entries match a directory by base name or by its
// root-relative path.
type Finder struct {
	Root         string
	Names        []string
	NamesExclude []string
	ExcludeDirs  []string
}

// Validate checks every glob for syntax errors.
func (f Finder) Validate() error {
	for _, group := range [][]string{f.Names, f.NamesExclude} {
		for _, pattern := range group {
			if !doublestar.ValidatePattern(strings.TrimSpace(pattern)) {
				return fmt.Errorf("invalid glob %q: %w", pattern, doublestar.ErrBadPattern)
			}
		}
	}
	return nil
}

// Find walks Root and returns matching root-relative slash paths, sorted.
func (f Finder) Find() ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	names := f.Names
	if len(names) == 0 {
		names = DefaultNames
	}
	excluded := make(map[string]bool, len(f.ExcludeDirs))
	for _, d := range f.ExcludeDirs {
		if d = paths.NormalizePath(strings.TrimSpace(d)); d != "" {
			excluded[d] = true
		}
	}

	var found []string
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := paths.RelativeTo(path, f.Root)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if d.Name() == ".git" || excluded[d.Name()] || excluded[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if matchAny(names, rel) && !matchAny(f.NamesExclude, rel) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// matchAny reports whether rel matches one of patterns.
func matchAny(patterns []string, rel string) bool {
	base := rel[strings.LastIndexByte(rel, '/')+1:]
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		target := base
		if strings.Contains(p, "/") {
			target = rel
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// SplitCSV splits a comma-separated option value, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
