package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugminer/internal/backends"
	"bugminer/internal/diff"
	"bugminer/internal/errors"
	"bugminer/internal/slogutil"
)

// testRepo is a throw-away repository driven through the git CLI.
type testRepo struct {
	t       *testing.T
	dir     string
	commits int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	r := &testRepo{t: t, dir: t.TempDir()}
	r.git("init", "-q")
	r.git("symbolic-ref", "HEAD", "refs/heads/main")
	return r
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	date := fmt.Sprintf("2024-01-01T00:%02d:00Z", r.commits)
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func (r *testRepo) commit(message string, files map[string]string) string {
	r.t.Helper()
	for name, content := range files {
		path := filepath.Join(r.dir, filepath.FromSlash(name))
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
	}
	r.git("add", "-A")
	r.git("commit", "-q", "-m", message)
	r.commits++
	return r.git("rev-parse", "HEAD")
}

func newAdapter(t *testing.T, dir string) *GitAdapter {
	t.Helper()
	g, err := NewGitAdapter(context.Background(), dir, Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	return g
}

func TestGitAdapter_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := NewGitAdapter(context.Background(), t.TempDir(), Options{}, slogutil.NewDiscardLogger())
	require.Error(t, err)
	assert.Equal(t, errors.RepositoryAccess, errors.CodeOf(err))
}

func TestGitAdapter_RequiresLogger(t *testing.T) {
	_, err := NewGitAdapter(context.Background(), t.TempDir(), Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InternalError, errors.CodeOf(err))
}

func TestGitAdapter_ID(t *testing.T) {
	r := newTestRepo(t)
	r.commit("init", map[string]string{"a.php": "<?php\n"})
	assert.Equal(t, backends.BackendCLI, newAdapter(t, r.dir).ID())
}

func TestGitAdapter_Revisions(t *testing.T) {
	r := newTestRepo(t)
	c0 := r.commit("initial", map[string]string{"a.php": "<?php\n"})
	c1 := r.commit("Fixes #12\n\nLonger body\nwith lines", map[string]string{"a.php": "<?php\necho 1;\n"})
	c2 := r.commit("third", map[string]string{"b.php": "<?php\n"})

	revs, err := newAdapter(t, r.dir).Revisions(context.Background())
	require.NoError(t, err)
	require.Len(t, revs, 3)

	assert.Equal(t, []string{c0, c1, c2}, []string{revs[0].SHA1, revs[1].SHA1, revs[2].SHA1})
	assert.Equal(t, "initial", revs[0].Message)
	assert.Equal(t, "Fixes #12\n\nLonger body\nwith lines", revs[1].Message)
}

func TestGitAdapter_RevisionsEmptyRepo(t *testing.T) {
	r := newTestRepo(t)
	_, err := newAdapter(t, r.dir).Revisions(context.Background())
	// git log on an unborn branch fails
	assert.Error(t, err)
}

func TestGitAdapter_DiffAndCheckout(t *testing.T) {
	r := newTestRepo(t)
	c0 := r.commit("initial", map[string]string{"a.php": "<?php\nfunction a() {}\n"})
	c1 := r.commit("change", map[string]string{"a.php": "<?php\nfunction a() { return 1; }\n"})

	g := newAdapter(t, r.dir)
	ctx := context.Background()

	raw, err := g.Diff(ctx, c0, c1)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "--- a/a.php")
	assert.Contains(t, string(raw), "+function a() { return 1; }")

	ref, err := g.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", ref)

	require.NoError(t, g.Checkout(ctx, c0))
	content, err := os.ReadFile(filepath.Join(r.dir, "a.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php\nfunction a() {}\n", string(content))

	detached, err := g.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, c0, detached, "detached HEAD reports the hash")

	require.NoError(t, g.Checkout(ctx, "main"))
	ref, err = g.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", ref)
}

func TestGitAdapter_DiffIgnoresPrefixConfig(t *testing.T) {
	r := newTestRepo(t)
	c0 := r.commit("initial", map[string]string{"b/k.go": "package b\n\nfunc A() int { return 1 }\n"})
	c1 := r.commit("change", map[string]string{"b/k.go": "package b\n\nfunc A() int { return 2 }\n"})
	r.git("config", "diff.noprefix", "true")
	r.git("config", "diff.mnemonicPrefix", "true")

	raw, err := newAdapter(t, r.dir).Diff(context.Background(), c0, c1)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "--- a/b/k.go")
	assert.Contains(t, string(raw), "+++ b/b/k.go")

	entries, err := diff.Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b/k.go", diff.StripPrefix(entries[0].FromPath))
}

func TestGitAdapter_CheckoutBadRef(t *testing.T) {
	r := newTestRepo(t)
	r.commit("initial", map[string]string{"a.php": "<?php\n"})

	err := newAdapter(t, r.dir).Checkout(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, errors.RepositoryAccess, errors.CodeOf(err))
}

func TestGitAdapter_Dirty(t *testing.T) {
	r := newTestRepo(t)
	r.commit("initial", map[string]string{"a.php": "<?php\n"})
	g := newAdapter(t, r.dir)

	dirty, err := g.Dirty(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(r.dir, "a.php"), []byte("<?php\n//x\n"), 0o644))
	dirty, err = g.Dirty(context.Background())
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestGitAdapter_Cancelled(t *testing.T) {
	r := newTestRepo(t)
	r.commit("initial", map[string]string{"a.php": "<?php\n"})
	g := newAdapter(t, r.dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Revisions(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.Cancelled, errors.CodeOf(err))
}

func TestParseLog(t *testing.T) {
	out := "abc\x1fFirst\n\x1e\ndef\x1fSecond line\n\nbody\n\x1e\n"
	revs := parseLog(out)
	require.Len(t, revs, 2)
	assert.Equal(t, backends.Revision{SHA1: "abc", Message: "First"}, revs[0])
	assert.Equal(t, backends.Revision{SHA1: "def", Message: "Second line\n\nbody"}, revs[1])
}
