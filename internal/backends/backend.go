// Package backends defines the version-control contract the miner walks
// history through. Implementations live in subpackages.
package backends

import (
	"context"
	"fmt"
)

// BackendID uniquely identifies a backend type
type BackendID string

const (
	// BackendCLI shells out to the git executable
	BackendCLI BackendID = "cli"
	// BackendGoGit uses the pure-Go go-git library
	BackendGoGit BackendID = "gogit"
)

// ParseBackendID validates a configured backend name.
func ParseBackendID(s string) (BackendID, error) {
	switch id := BackendID(s); id {
	case BackendCLI, BackendGoGit:
		return id, nil
	case "":
		return BackendCLI, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %q or %q)", s, BackendCLI, BackendGoGit)
	}
}

// Revision is one commit of a linear history.
type Revision struct {
	SHA1    string
	Message string
}

// VCS is the version-control access the miner needs. Checkout mutates the
// shared work tree; callers must not run two miners on the same tree.
type VCS interface {
	// ID returns the unique identifier for this backend
	ID() BackendID

	// CurrentRef returns the branch name, or the commit hash when detached.
	CurrentRef(ctx context.Context) (string, error)

	// Revisions lists non-merge commits reachable from HEAD, oldest first.
	Revisions(ctx context.Context) ([]Revision, error)

	// Diff returns the raw unified diff between two commits.
	Diff(ctx context.Context, from, to string) ([]byte, error)

	// Checkout forces the work tree to ref, discarding local modifications.
	Checkout(ctx context.Context, ref string) error

	// Dirty reports whether the work tree has uncommitted changes.
	Dirty(ctx context.Context) (bool, error)
}
