package git

import (
	"context"
	"strings"

	"bugminer/internal/backends"
)

// Record and field separators for the log format; neither can occur in a
// commit hash and both are vanishingly rare in messages.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// CurrentRef returns the checked-out branch, or the HEAD hash when detached.
func (g *GitAdapter) CurrentRef(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	ref := strings.TrimSpace(string(out))
	if ref != "HEAD" {
		return ref, nil
	}

	out, err = g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Revisions lists non-merge commits reachable from HEAD in date order,
// oldest first, with full messages.
func (g *GitAdapter) Revisions(ctx context.Context) ([]backends.Revision, error) {
	out, err := g.run(ctx,
		"log",
		"--no-merges",
		"--date-order",
		"--reverse",
		"--format=%H%x1f%B%x1e",
	)
	if err != nil {
		return nil, err
	}
	revs := parseLog(string(out))

	g.logger.Debug("Listed revisions", "count", len(revs))
	return revs, nil
}

func parseLog(out string) []backends.Revision {
	var revs []backends.Revision
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		hash, message, ok := strings.Cut(record, fieldSep)
		if !ok {
			continue
		}
		revs = append(revs, backends.Revision{
			SHA1:    strings.TrimSpace(hash),
			Message: strings.TrimRight(message, "\n "),
		})
	}
	return revs
}
