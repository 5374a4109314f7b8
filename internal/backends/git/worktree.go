package git

import (
	"context"
	"strings"
)

// diffArgs pins every setting of the repository or user config that changes
// the diff's shape. Paths always carry the a/ and b/ prefixes and non-ASCII
// names are not octal-escaped.
var diffArgs = []string{
	"-c", "core.quotepath=off",
	"diff", "--no-ext-diff", "--no-color", "--src-prefix=a/", "--dst-prefix=b/",
}

// Diff returns the unified diff from one commit to another.
func (g *GitAdapter) Diff(ctx context.Context, from, to string) ([]byte, error) {
	args := append(append([]string{}, diffArgs...), from, to)
	return g.run(ctx, args...)
}

// Checkout forces the work tree to ref.
func (g *GitAdapter) Checkout(ctx context.Context, ref string) error {
	_, err := g.run(ctx, "checkout", "--force", "--quiet", ref)
	return err
}

// Dirty reports whether tracked files differ from HEAD or untracked files exist.
func (g *GitAdapter) Dirty(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}
