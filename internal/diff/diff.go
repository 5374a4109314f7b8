// Package diff turns raw unified diff text into per-file entries of typed hunk lines.
package diff

import (
	"bytes"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"bugminer/internal/errors"
)

// LineType classifies a hunk line.
type LineType int

const (
	// Unchanged is a context line present in both images.
	Unchanged LineType = iota
	// Added exists only in the post-image.
	Added
	// Removed exists only in the pre-image.
	Removed
)

func (t LineType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Line is one record of a hunk body.
type Line struct {
	Type LineType
	Text string
}

// Hunk is a contiguous block of changes. StartLine is the 1-based line
// number of the hunk's first line in the post-image.
type Hunk struct {
	StartLine int
	Lines     []Line
}

// Entry is the diff of a single file. Paths keep the VCS prefix
// ("a/", "b/") or "/dev/null" exactly as they appear in the diff.
type Entry struct {
	FromPath string
	ToPath   string
	Hunks    []Hunk
}

// Parse parses a multi-file unified diff as produced by git diff.
func Parse(raw []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff(raw)
	if err != nil {
		return nil, errors.NewMinerError(errors.DiffParse, "Failed to parse diff", err, nil)
	}

	entries := make([]Entry, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		entry := Entry{
			FromPath: fd.OrigName,
			ToPath:   fd.NewName,
			Hunks:    make([]Hunk, 0, len(fd.Hunks)),
		}
		for _, h := range fd.Hunks {
			entry.Hunks = append(entry.Hunks, Hunk{
				StartLine: int(h.NewStartLine),
				Lines:     parseBody(h.Body),
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseBody splits a hunk body into typed lines. "\ No newline at end of
// file" markers carry no line of their own and are dropped.
func parseBody(body []byte) []Line {
	text := strings.TrimSuffix(string(body), "\n")
	if text == "" {
		return nil
	}

	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		if l == "" {
			// A bare empty line is an unchanged blank line whose leading space was stripped.
			lines = append(lines, Line{Type: Unchanged})
			continue
		}
		switch l[0] {
		case '+':
			lines = append(lines, Line{Type: Added, Text: l[1:]})
		case '-':
			lines = append(lines, Line{Type: Removed, Text: l[1:]})
		case ' ':
			lines = append(lines, Line{Type: Unchanged, Text: l[1:]})
		case '\\':
		default:
			lines = append(lines, Line{Type: Unchanged, Text: l})
		}
	}
	return lines
}

// StripPrefix removes the git "a/" or "b/" marker from a diff path.
func StripPrefix(path string) string {
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
