package mining

import (
	"context"

	"bugminer/internal/backends"
)

// worktreeLease owns the shared work tree for the length of a run. It
// remembers the ref checked out at acquisition and puts it back on release.
type worktreeLease struct {
	vcs     backends.VCS
	ref     string
	touched bool
}

func acquireWorktree(ctx context.Context, vcs backends.VCS) (*worktreeLease, error) {
	ref, err := vcs.CurrentRef(ctx)
	if err != nil {
		return nil, err
	}
	return &worktreeLease{vcs: vcs, ref: ref}, nil
}

// Checkout moves the work tree to a revision.
func (l *worktreeLease) Checkout(ctx context.Context, sha1 string) error {
	l.touched = true
	return l.vcs.Checkout(ctx, sha1)
}

// Release restores the starting ref. It runs even when ctx is already
// cancelled and is a no-op if nothing was checked out.
func (l *worktreeLease) Release(ctx context.Context) error {
	if !l.touched {
		return nil
	}
	if err := l.vcs.Checkout(context.WithoutCancel(ctx), l.ref); err != nil {
		return err
	}
	l.touched = false
	return nil
}
