package mining

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugminer/internal/backends"
	"bugminer/internal/errors"
	"bugminer/internal/funcindex"
	"bugminer/internal/slogutil"
	"bugminer/internal/storage"
)

// fakeVCS serves a scripted history. Every revision's diff touches a.php.
type fakeVCS struct {
	ref       string
	revs      []backends.Revision
	failDiff  map[string]error
	checkouts []string
	current   string
}

func newFakeVCS(n int) *fakeVCS {
	f := &fakeVCS{ref: "main", current: "main", failDiff: map[string]error{}}
	for i := 0; i < n; i++ {
		f.revs = append(f.revs, backends.Revision{
			SHA1:    fmt.Sprintf("c%d", i),
			Message: fmt.Sprintf("Fixes #%d", 100+i),
		})
	}
	return f
}

func (f *fakeVCS) ID() backends.BackendID { return "fake" }

func (f *fakeVCS) CurrentRef(context.Context) (string, error) { return f.current, nil }

func (f *fakeVCS) Revisions(context.Context) ([]backends.Revision, error) { return f.revs, nil }

func (f *fakeVCS) Diff(_ context.Context, from, to string) ([]byte, error) {
	if err, ok := f.failDiff[to]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf(`diff --git a/a.php b/a.php
--- a/a.php
+++ b/a.php
@@ -1,2 +1,2 @@
 <?php
-// %s
+// %s
`, from, to)), nil
}

func (f *fakeVCS) Checkout(_ context.Context, ref string) error {
	f.checkouts = append(f.checkouts, ref)
	f.current = ref
	return nil
}

func (f *fakeVCS) Dirty(context.Context) (bool, error) { return false, nil }

type staticFinder []string

func (s staticFinder) Find() ([]string, error) { return s, nil }

type emptyIndexes struct{}

func (emptyIndexes) Supports(string) bool { return true }

func (emptyIndexes) ForFile(context.Context, string) (funcindex.Index, error) {
	return funcindex.Empty, nil
}

type countingProgress struct {
	total, advanced int
	finished        bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Advance()        { p.advanced++ }
func (p *countingProgress) Finish()         { p.finished = true }

func openStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "bugs.db"), slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMiner(vcs backends.VCS, store Store, opts Options) *Miner {
	if opts.Finder == nil {
		opts.Finder = staticFinder{"a.php"}
	}
	if opts.Indexes == nil {
		opts.Indexes = emptyIndexes{}
	}
	return New(vcs, store, opts, slogutil.NewDiscardLogger())
}

func recordedSHAs(t *testing.T, db *storage.DB) []string {
	t.Helper()
	rows, err := db.Conn().Query("SELECT sha1 FROM revisions ORDER BY sequence")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestRun_TwoRevisionsRecordsNothing(t *testing.T) {
	vcs := newFakeVCS(2)
	db := openStore(t)
	progress := &countingProgress{}

	sum, err := newMiner(vcs, db, Options{Progress: progress}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, sum.State)
	assert.Zero(t, sum.Recorded)
	assert.Empty(t, recordedSHAs(t, db))
	assert.Empty(t, vcs.checkouts, "nothing checked out, nothing to restore")
	assert.Zero(t, progress.total)
}

func TestRun_FourRevisionsSkipsFirstAndLast(t *testing.T) {
	vcs := newFakeVCS(4)
	db := openStore(t)
	progress := &countingProgress{}

	sum, err := newMiner(vcs, db, Options{Progress: progress}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, recordedSHAs(t, db))
	assert.Equal(t, 2, sum.Recorded)
	assert.Equal(t, 2, sum.Eligible)
	assert.Equal(t, []string{"c1", "c2", "main"}, vcs.checkouts)
	assert.Equal(t, "main", vcs.current)
	assert.Equal(t, 2, progress.total)
	assert.Equal(t, 2, progress.advanced)
	assert.True(t, progress.finished)

	bugs, err := db.BugProne(context.Background(), storage.KindFiles, 0)
	require.NoError(t, err)
	assert.Equal(t, []storage.RankedEntity{{Name: "a.php", Count: 2}}, bugs)
}

func TestRun_RepositoryErrorRestoresAndKeepsEarlierFacts(t *testing.T) {
	// seven revisions: c1..c5 eligible, the third of them (c3) fails
	vcs := newFakeVCS(7)
	vcs.failDiff["c3"] = errors.NewMinerError(errors.RepositoryAccess, "Git command failed", nil, nil)
	db := openStore(t)

	sum, err := newMiner(vcs, db, Options{}).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, errors.RepositoryAccess, errors.CodeOf(err))
	assert.Equal(t, Aborted, sum.State)
	assert.Equal(t, "main", vcs.current, "starting ref restored")
	assert.Equal(t, []string{"c1", "c2"}, recordedSHAs(t, db))
}

type failingIndexes struct{ code errors.ErrorCode }

func (failingIndexes) Supports(string) bool { return true }

func (f failingIndexes) ForFile(context.Context, string) (funcindex.Index, error) {
	return funcindex.Empty, errors.NewMinerError(f.code, "index failed", nil, nil)
}

func TestRun_IndexFailures(t *testing.T) {
	tests := []struct {
		name     string
		code     errors.ErrorCode
		wantErr  bool
		recorded []string
	}{
		{"structural analysis degrades", errors.StructuralAnalysis, false, []string{"c1", "c2"}},
		{"internal error aborts", errors.InternalError, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vcs := newFakeVCS(4)
			db := openStore(t)

			sum, err := newMiner(vcs, db, Options{Indexes: failingIndexes{code: tt.code}}).Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.code, errors.CodeOf(err))
				assert.Equal(t, Aborted, sum.State)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, "main", vcs.current)
			assert.Equal(t, tt.recorded, recordedSHAs(t, db))
		})
	}
}

func TestRun_RerunSkipsRecorded(t *testing.T) {
	db := openStore(t)

	_, err := newMiner(newFakeVCS(5), db, Options{}).Run(context.Background())
	require.NoError(t, err)

	vcs := newFakeVCS(5)
	sum, err := newMiner(vcs, db, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.Recorded)
	assert.Equal(t, 3, sum.Skipped)
	assert.Empty(t, vcs.checkouts)
	assert.Equal(t, []string{"c1", "c2", "c3"}, recordedSHAs(t, db))
}

func TestRun_ResumesAfterPartialFailure(t *testing.T) {
	db := openStore(t)

	failing := newFakeVCS(5)
	failing.failDiff["c2"] = errors.NewMinerError(errors.RepositoryAccess, "boom", nil, nil)
	_, err := newMiner(failing, db, Options{}).Run(context.Background())
	require.Error(t, err)

	sum, err := newMiner(newFakeVCS(5), db, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Recorded)
	assert.Equal(t, []string{"c1", "c2", "c3"}, recordedSHAs(t, db))
}

type cancelAfter struct {
	countingProgress
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Advance() {
	c.countingProgress.Advance()
	if c.advanced == c.n {
		c.cancel()
	}
}

func TestRun_CancelRestoresRef(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vcs := newFakeVCS(6)
	db := openStore(t)
	progress := &cancelAfter{n: 2, cancel: cancel}

	sum, err := newMiner(vcs, db, Options{Progress: progress}).Run(ctx)
	require.Error(t, err)

	assert.Equal(t, errors.Cancelled, errors.CodeOf(err))
	assert.Equal(t, Aborted, sum.State)
	assert.Equal(t, "main", vcs.current)
	assert.Equal(t, []string{"c1", "c2", "main"}, vcs.checkouts)
	assert.Equal(t, []string{"c1", "c2"}, recordedSHAs(t, db))
	assert.True(t, progress.finished)
}

func TestRun_StateSequence(t *testing.T) {
	var states []State
	vcs := newFakeVCS(3)

	_, err := newMiner(vcs, openStore(t), Options{
		OnState: func(s State) { states = append(states, s) },
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{
		Idle, Walking,
		Diffing, CheckedOut, Attributing, Classifying, Recording,
		Restoring, Done,
	}, states)
}

func TestRun_IrrelevantFilesNotRecorded(t *testing.T) {
	vcs := newFakeVCS(3)
	db := openStore(t)

	_, err := newMiner(vcs, db, Options{Finder: staticFinder{"other.php"}}).Run(context.Background())
	require.NoError(t, err)

	files, err := db.FrequentlyChanged(context.Background(), storage.KindFiles, 0)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, []string{"c1"}, recordedSHAs(t, db), "the revision itself is still recorded")
}

func TestRun_Journal(t *testing.T) {
	db := openStore(t)
	vcs := newFakeVCS(4)

	sum, err := newMiner(vcs, db, Options{Journal: db, Repository: "/repo"}).Run(context.Background())
	require.NoError(t, err)

	runs, err := db.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].RunID)
	assert.Equal(t, "done", runs[0].Status)
	assert.Equal(t, "fake", runs[0].Backend)
	assert.Equal(t, "main", runs[0].StartRef)
	assert.Equal(t, 2, runs[0].RevisionsRecorded)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checked-out", CheckedOut.String())
	assert.Equal(t, "unknown", State(99).String())
}
