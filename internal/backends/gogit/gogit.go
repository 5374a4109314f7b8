// Package gogit implements the VCS contract with the pure-Go go-git
// library, for hosts without a git executable.
package gogit

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"bugminer/internal/backends"
	"bugminer/internal/errors"
)

// Adapter implements backends.VCS over an opened repository.
type Adapter struct {
	repoRoot string
	repo     *git.Repository
	logger   *slog.Logger
}

var _ backends.VCS = (*Adapter)(nil)

// Open opens the repository whose work tree is repoRoot.
func Open(repoRoot string, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return nil, repoError("Failed to open repository", err).
			WithDetails(map[string]interface{}{"repoRoot": repoRoot})
	}
	logger.Debug("go-git adapter initialized", "backend", string(backends.BackendGoGit), "repoRoot", repoRoot)
	return &Adapter{repoRoot: repoRoot, repo: repo, logger: logger}, nil
}

// ID returns the backend identifier
func (a *Adapter) ID() backends.BackendID {
	return backends.BackendGoGit
}

// CurrentRef returns the checked-out branch, or the HEAD hash when detached.
func (a *Adapter) CurrentRef(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", cancelled(err)
	}
	head, err := a.repo.Head()
	if err != nil {
		return "", repoError("Failed to resolve HEAD", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// Revisions lists non-merge commits reachable from HEAD by committer time,
// oldest first.
func (a *Adapter) Revisions(ctx context.Context) ([]backends.Revision, error) {
	head, err := a.repo.Head()
	if err != nil {
		return nil, repoError("Failed to resolve HEAD", err)
	}

	iter, err := a.repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, repoError("Failed to read history", err)
	}
	defer iter.Close()

	var revs []backends.Revision
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.NumParents() > 1 {
			return nil
		}
		revs = append(revs, backends.Revision{
			SHA1:    c.Hash.String(),
			Message: strings.TrimRight(c.Message, "\n "),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(err)
		}
		return nil, repoError("Failed to walk history", err)
	}

	for i, j := 0, len(revs)-1; i < j; i, j = i+1, j-1 {
		revs[i], revs[j] = revs[j], revs[i]
	}
	a.logger.Debug("Listed revisions", "count", len(revs))
	return revs, nil
}

// Diff returns the unified diff between two commits.
func (a *Adapter) Diff(ctx context.Context, from, to string) ([]byte, error) {
	fromCommit, err := a.commit(from)
	if err != nil {
		return nil, err
	}
	toCommit, err := a.commit(to)
	if err != nil {
		return nil, err
	}

	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(err)
		}
		return nil, repoError("Failed to compute diff", err).
			WithDetails(map[string]interface{}{"from": from, "to": to})
	}
	return []byte(patch.String()), nil
}

// Checkout forces the work tree to a branch name or a commit.
func (a *Adapter) Checkout(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	wt, err := a.repo.Worktree()
	if err != nil {
		return repoError("Failed to open work tree", err)
	}

	opts := &git.CheckoutOptions{Force: true}
	branch := plumbing.NewBranchReferenceName(ref)
	if _, err := a.repo.Reference(branch, true); err == nil {
		opts.Branch = branch
	} else {
		hash, err := a.repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			return repoError("Unknown revision", err).WithDetails(map[string]interface{}{"ref": ref})
		}
		opts.Hash = *hash
	}

	if err := wt.Checkout(opts); err != nil {
		return repoError("Checkout failed", err).WithDetails(map[string]interface{}{"ref": ref})
	}
	return nil
}

// Dirty reports whether the work tree differs from HEAD.
func (a *Adapter) Dirty(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, cancelled(err)
	}
	wt, err := a.repo.Worktree()
	if err != nil {
		return false, repoError("Failed to open work tree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, repoError("Failed to read status", err)
	}
	return !status.IsClean(), nil
}

func (a *Adapter) commit(rev string) (*object.Commit, error) {
	hash, err := a.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, repoError("Unknown revision", err).WithDetails(map[string]interface{}{"ref": rev})
	}
	c, err := a.repo.CommitObject(*hash)
	if err != nil {
		return nil, repoError("Failed to load commit", err).WithDetails(map[string]interface{}{"ref": rev})
	}
	return c, nil
}

func repoError(msg string, cause error) *errors.MinerError {
	return errors.NewMinerError(errors.RepositoryAccess, msg, cause, nil)
}

func cancelled(cause error) error {
	if stderrors.Is(cause, context.Canceled) || stderrors.Is(cause, context.DeadlineExceeded) {
		return errors.NewMinerError(errors.Cancelled, "Operation cancelled", cause, nil)
	}
	return repoError("Operation failed", cause)
}
