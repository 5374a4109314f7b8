// Package testutil builds throw-away git repositories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// baseTime anchors commit timestamps so history order is deterministic.
var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// GitRepo is a repository in a temporary directory on branch "main".
type GitRepo struct {
	t    *testing.T
	Dir  string
	Repo *git.Repository

	commits int
}

// NewGitRepo initializes an empty repository.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	return &GitRepo{t: t, Dir: dir, Repo: repo}
}

// Commit writes files (path -> content; an empty content deletes the path),
// stages everything and commits. It returns the commit hash.
func (r *GitRepo) Commit(message string, files map[string]string) string {
	r.t.Helper()

	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to open work tree: %v", err)
	}

	for name, content := range files {
		path := filepath.Join(r.Dir, filepath.FromSlash(name))
		if content == "" {
			if err := os.Remove(path); err != nil {
				r.t.Fatalf("Failed to remove %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			r.t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			r.t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("Failed to stage changes: %v", err)
	}

	sig := &object.Signature{
		Name:  "Test Author",
		Email: "test@example.com",
		When:  baseTime.Add(time.Duration(r.commits) * time.Minute),
	}
	r.commits++

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash.String()
}

// Head returns the short name of the checked-out branch, or the hash when detached.
func (r *GitRepo) Head() string {
	r.t.Helper()

	head, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("Failed to read HEAD: %v", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return head.Hash().String()
}

// ReadFile returns the work-tree content of a root-relative path.
func (r *GitRepo) ReadFile(name string) string {
	r.t.Helper()

	data, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(name)))
	if err != nil {
		r.t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}
