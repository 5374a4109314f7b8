package gogit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugminer/internal/backends"
	"bugminer/internal/diff"
	"bugminer/internal/errors"
	"bugminer/internal/slogutil"
	"bugminer/internal/testutil"
)

func openAdapter(t *testing.T, dir string) *Adapter {
	t.Helper()
	a, err := Open(dir, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	return a
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.RepositoryAccess, errors.CodeOf(err))
}

func TestAdapter_Revisions(t *testing.T) {
	r := testutil.NewGitRepo(t)
	c0 := r.Commit("initial", map[string]string{"a.php": "<?php\n"})
	c1 := r.Commit("Closes #3\n", map[string]string{"a.php": "<?php\necho 1;\n"})
	c2 := r.Commit("third", map[string]string{"b.php": "<?php\n"})

	a := openAdapter(t, r.Dir)
	assert.Equal(t, backends.BackendGoGit, a.ID())

	revs, err := a.Revisions(context.Background())
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, []backends.Revision{
		{SHA1: c0, Message: "initial"},
		{SHA1: c1, Message: "Closes #3"},
		{SHA1: c2, Message: "third"},
	}, revs)
}

func TestAdapter_DiffParses(t *testing.T) {
	r := testutil.NewGitRepo(t)
	c0 := r.Commit("initial", map[string]string{"src/a.php": "<?php\nfunction a() {\n    return 0;\n}\n"})
	c1 := r.Commit("change", map[string]string{"src/a.php": "<?php\nfunction a() {\n    return 1;\n}\n"})

	raw, err := openAdapter(t, r.Dir).Diff(context.Background(), c0, c1)
	require.NoError(t, err)

	entries, err := diff.Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "src/a.php", diff.StripPrefix(entries[0].FromPath))
	require.NotEmpty(t, entries[0].Hunks)

	var added, removed int
	for _, l := range entries[0].Hunks[0].Lines {
		switch l.Type {
		case diff.Added:
			added++
			assert.Equal(t, "    return 1;", l.Text)
		case diff.Removed:
			removed++
		}
	}
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}

func TestAdapter_CheckoutAndRestore(t *testing.T) {
	r := testutil.NewGitRepo(t)
	c0 := r.Commit("initial", map[string]string{"a.php": "v0\n"})
	r.Commit("second", map[string]string{"a.php": "v1\n"})

	a := openAdapter(t, r.Dir)
	ctx := context.Background()

	ref, err := a.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", ref)

	require.NoError(t, a.Checkout(ctx, c0))
	assert.Equal(t, "v0\n", r.ReadFile("a.php"))

	detached, err := a.CurrentRef(ctx)
	require.NoError(t, err)
	assert.Equal(t, c0, detached)

	require.NoError(t, a.Checkout(ctx, "main"))
	assert.Equal(t, "v1\n", r.ReadFile("a.php"))
	assert.Equal(t, "main", r.Head())
}

func TestAdapter_CheckoutUnknownRef(t *testing.T) {
	r := testutil.NewGitRepo(t)
	r.Commit("initial", map[string]string{"a.php": "v0\n"})

	err := openAdapter(t, r.Dir).Checkout(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, errors.RepositoryAccess, errors.CodeOf(err))
}

func TestAdapter_Cancelled(t *testing.T) {
	r := testutil.NewGitRepo(t)
	r.Commit("initial", map[string]string{"a.php": "v0\n"})
	a := openAdapter(t, r.Dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Revisions(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.Cancelled, errors.CodeOf(err))

	err = a.Checkout(ctx, "main")
	assert.Equal(t, errors.Cancelled, errors.CodeOf(err))
}

func TestAdapter_Dirty(t *testing.T) {
	r := testutil.NewGitRepo(t)
	r.Commit("initial", map[string]string{"a.php": "v0\n"})
	a := openAdapter(t, r.Dir)

	dirty, err := a.Dirty(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)
}
