// Package git implements the VCS contract by shelling out to the git executable.
package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bugminer/internal/backends"
	"bugminer/internal/errors"
)

// Options configures the adapter.
type Options struct {
	// Timeout bounds each git invocation; zero means unbounded.
	Timeout time.Duration
	// Executable overrides the git binary looked up on PATH.
	Executable string
}

// GitAdapter implements backends.VCS for one repository.
type GitAdapter struct {
	repoRoot string
	git      string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ backends.VCS = (*GitAdapter)(nil)

// NewGitAdapter creates an adapter for the repository at repoRoot.
// It fails when git is missing or repoRoot is not a work tree.
func NewGitAdapter(ctx context.Context, repoRoot string, opts Options, logger *slog.Logger) (*GitAdapter, error) {
	if logger == nil {
		return nil, errors.NewMinerError(errors.InternalError, "Logger is required for GitAdapter", nil, nil)
	}

	exe := opts.Executable
	if exe == "" {
		exe = "git"
	}
	path, err := exec.LookPath(exe)
	if err != nil {
		return nil, errors.NewMinerError(
			errors.RepositoryAccess,
			"git executable not found",
			err,
			[]errors.FixAction{{
				Type:        errors.EditConfig,
				Description: "Install git or set backend to \"gogit\"",
			}},
		)
	}

	g := &GitAdapter{
		repoRoot: repoRoot,
		git:      path,
		timeout:  opts.Timeout,
		logger:   logger,
	}

	inside, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(string(inside)) != "true" {
		return nil, errors.NewMinerError(
			errors.RepositoryAccess,
			"Not a git work tree",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git status",
					Safe:        true,
					Description: "Verify the repository path",
				},
			},
		).WithDetails(map[string]interface{}{"repoRoot": repoRoot})
	}

	logger.Debug("Git adapter initialized",
		"backend", string(backends.BackendCLI),
		"repoRoot", repoRoot,
		"timeout", opts.Timeout.String(),
	)
	return g, nil
}

// ID returns the backend identifier
func (g *GitAdapter) ID() backends.BackendID {
	return backends.BackendCLI
}

// run executes git in the repository root and returns stdout untouched.
func (g *GitAdapter) run(ctx context.Context, args ...string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.git, args...)
	cmd.Dir = g.repoRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command", "args", args)

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	details := map[string]interface{}{
		"args":   args,
		"stderr": strings.TrimSpace(stderr.String()),
	}
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, errors.NewMinerError(errors.RepositoryAccess, "Git command timed out", err, nil).WithDetails(details)
	case stderrors.Is(ctx.Err(), context.Canceled):
		return nil, errors.NewMinerError(errors.Cancelled, "Git command cancelled", ctx.Err(), nil).WithDetails(details)
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		msg := "Git command failed"
		if s := details["stderr"].(string); s != "" {
			msg += ": " + firstLine(s)
		}
		return nil, errors.NewMinerError(errors.RepositoryAccess, msg, err, nil).WithDetails(details)
	}
	return nil, errors.NewMinerError(errors.RepositoryAccess, "Failed to execute git command", err, nil).WithDetails(details)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
