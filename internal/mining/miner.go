package mining

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bugminer/internal/attribution"
	"bugminer/internal/backends"
	"bugminer/internal/bugfix"
	"bugminer/internal/diff"
	"bugminer/internal/errors"
	"bugminer/internal/storage"
)

// minRevisions is the shortest history with an eligible revision: one
// predecessor to diff against and a newer tip that is never mined.
const minRevisions = 3

// Store is the part of the fact store a run writes to.
type Store interface {
	HasRevision(ctx context.Context, sha1 string) (bool, error)
	RecordRevision(ctx context.Context, facts storage.RevisionFacts) error
}

// Journal records one row per finished run.
type Journal interface {
	RecordRun(ctx context.Context, run storage.RunRecord) (storage.RunRecord, error)
}

// FileFinder lists the relevant root-relative paths of the checked-out tree.
type FileFinder interface {
	Find() ([]string, error)
}

// Options wires the collaborators of a run. Finder and Indexes are
// required; the rest have defaults.
type Options struct {
	// Repository is recorded in the run journal.
	Repository string
	Finder     FileFinder
	Indexes    attribution.IndexFactory
	// Classifier defaults to bugfix.Default().
	Classifier *bugfix.Classifier
	Progress   Progress
	Journal    Journal
	// OnState observes every state transition.
	OnState func(State)
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	StartRef string
	State    State
	// Eligible counts revisions in the mined window.
	Eligible int
	Recorded int
	Skipped  int
	Duration time.Duration
}

// Miner runs the revision-mining pipeline against one work tree.
type Miner struct {
	vcs        backends.VCS
	store      Store
	opts       Options
	attributor *attribution.Attributor
	logger     *slog.Logger
	state      State
}

// New creates a miner.
func New(vcs backends.VCS, store Store, opts Options, logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Classifier == nil {
		opts.Classifier = bugfix.Default()
	}
	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	return &Miner{
		vcs:        vcs,
		store:      store,
		opts:       opts,
		attributor: attribution.New(opts.Indexes, logger),
		logger:     logger,
	}
}

// State returns the current state.
func (m *Miner) State() State {
	return m.state
}

func (m *Miner) setState(s State) {
	m.state = s
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}

// Run walks revisions 1..n-2 of the history, oldest first, recording facts
// for each one not already stored. The starting ref is restored on every
// exit path; a restore failure is joined to the returned error. Facts of
// revisions processed before a failure stay recorded.
func (m *Miner) Run(ctx context.Context) (sum Summary, err error) {
	started := time.Now()
	sum.RunID = uuid.New().String()
	m.setState(Idle)

	defer func() {
		sum.Duration = time.Since(started)
		if err != nil {
			m.setState(Aborted)
		} else {
			m.setState(Done)
		}
		sum.State = m.state
		m.journal(ctx, sum, started, err)
	}()

	lease, err := acquireWorktree(ctx, m.vcs)
	if err != nil {
		return sum, fmt.Errorf("reading current ref: %w", err)
	}
	sum.StartRef = lease.ref

	defer func() {
		m.setState(Restoring)
		if rerr := lease.Release(ctx); rerr != nil {
			m.logger.Error("Failed to restore work tree", "ref", lease.ref, "error", rerr)
			err = stderrors.Join(err, fmt.Errorf("restoring %s: %w", lease.ref, rerr))
		}
	}()

	m.setState(Walking)
	if dirty, derr := m.vcs.Dirty(ctx); derr == nil && dirty {
		m.logger.Warn("Work tree has uncommitted changes; checkouts will discard them", "ref", lease.ref)
	}

	revs, err := m.vcs.Revisions(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing revisions: %w", err)
	}

	m.logger.Info("Mining history",
		"runId", sum.RunID,
		"revisions", len(revs),
		"ref", lease.ref,
	)
	if len(revs) < minRevisions {
		m.logger.Info("History too short to mine", "revisions", len(revs), "minimum", minRevisions)
		return sum, nil
	}

	sum.Eligible = len(revs) - 2
	m.opts.Progress.Start(sum.Eligible)
	defer m.opts.Progress.Finish()

	for i := 1; i < len(revs)-1; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return sum, errors.NewMinerError(errors.Cancelled, "Mining cancelled", cerr, nil).
				WithDetails(map[string]interface{}{"next": revs[i].SHA1})
		}

		recorded, err := m.mineRevision(ctx, lease, revs[i-1], revs[i], i)
		if err != nil {
			return sum, fmt.Errorf("revision %s: %w", short(revs[i].SHA1), err)
		}
		if recorded {
			sum.Recorded++
		} else {
			sum.Skipped++
		}
		m.opts.Progress.Advance()
	}

	m.logger.Info("Mining finished",
		"runId", sum.RunID,
		"recorded", sum.Recorded,
		"skipped", sum.Skipped,
	)
	return sum, nil
}

// mineRevision processes one revision against its predecessor. It returns
// false when the revision was already recorded by an earlier run.
func (m *Miner) mineRevision(ctx context.Context, lease *worktreeLease, prev, rev backends.Revision, seq int) (bool, error) {
	done, err := m.store.HasRevision(ctx, rev.SHA1)
	if err != nil {
		return false, err
	}
	if done {
		m.logger.Debug("Skipping recorded revision", "sha1", rev.SHA1)
		return false, nil
	}

	m.setState(Diffing)
	raw, err := m.vcs.Diff(ctx, prev.SHA1, rev.SHA1)
	if err != nil {
		return false, err
	}
	entries, err := diff.Parse(raw)
	if err != nil {
		return false, err
	}

	m.setState(CheckedOut)
	if err := lease.Checkout(ctx, rev.SHA1); err != nil {
		return false, err
	}
	files, err := m.opts.Finder.Find()
	if err != nil {
		return false, errors.NewMinerError(errors.RepositoryAccess, "Failed to list work-tree files", err, nil)
	}

	m.setState(Attributing)
	res, err := m.attributor.Attribute(ctx, entries, attribution.NewPathSet(files))
	if err != nil {
		return false, err
	}

	m.setState(Classifying)
	bugID, _ := m.opts.Classifier.Classify(rev.Message)

	m.setState(Recording)
	err = m.store.RecordRevision(ctx, storage.RevisionFacts{
		SHA1:      rev.SHA1,
		Message:   rev.Message,
		Sequence:  seq,
		Files:     res.Files,
		Functions: res.Functions,
		BugID:     bugID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Miner) journal(ctx context.Context, sum Summary, started time.Time, runErr error) {
	if m.opts.Journal == nil {
		return
	}
	rec := storage.RunRecord{
		RunID:             sum.RunID,
		Repository:        m.opts.Repository,
		Backend:           string(m.vcs.ID()),
		StartRef:          sum.StartRef,
		Status:            sum.State.String(),
		RevisionsTotal:    sum.Eligible,
		RevisionsRecorded: sum.Recorded,
		RevisionsSkipped:  sum.Skipped,
		StartedAt:         started,
		FinishedAt:        started.Add(sum.Duration),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if _, err := m.opts.Journal.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		m.logger.Warn("Failed to record mining run", "runId", sum.RunID, "error", err)
	}
}

func short(sha1 string) string {
	if len(sha1) > 12 {
		return sha1[:12]
	}
	return sha1
}
