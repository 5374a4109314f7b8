package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"bugminer/internal/backends"
	"bugminer/internal/backends/git"
	"bugminer/internal/backends/gogit"
	"bugminer/internal/bugfix"
	"bugminer/internal/config"
	"bugminer/internal/discovery"
	"bugminer/internal/errors"
	"bugminer/internal/funcindex"
	"bugminer/internal/mining"
	"bugminer/internal/paths"
	"bugminer/internal/storage"
)

var (
	mineNames        string
	mineNamesExclude string
	mineExclude      []string
	mineProgress     bool
	mineBackend      string
)

var mineCmd = &cobra.Command{
	Use:   "mine <database> <repository>",
	Short: "Mine a repository's history into a fact database",
	Long: `Walk the history of <repository> oldest first and record, per revision,
the changed files and functions and the referenced bug id, if any.

The work tree is checked out at every revision and restored to its
starting branch afterwards, even when mining fails. Revisions already in
<database> are skipped, so an interrupted run can simply be repeated.

Examples:
  bugminer mine bugs.db ./repo
  bugminer mine bugs.db ./repo --names '*.go,*.php' --exclude vendor
  bugminer mine bugs.db ./repo --backend gogit --progress`,
	Args: exactArgs(2),
	RunE: runMine,
}

func init() {
	mineCmd.Flags().StringVar(&mineNames, "names", "", "Comma-separated file name globs to include (default from config, *.php)")
	mineCmd.Flags().StringVar(&mineNamesExclude, "names-exclude", "", "Comma-separated file name globs to exclude")
	mineCmd.Flags().StringArrayVar(&mineExclude, "exclude", nil, "Directory to exclude (repeatable)")
	mineCmd.Flags().BoolVar(&mineProgress, "progress", false, "Show a progress bar on stderr")
	mineCmd.Flags().StringVar(&mineBackend, "backend", "", "VCS backend: cli or gogit (default from config)")
	rootCmd.AddCommand(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	start := time.Now()
	dbPath := args[0]

	repoRoot, err := paths.ResolveRoot(args[1])
	if err != nil {
		return errors.NewMinerError(errors.RepositoryAccess,
			fmt.Sprintf("Cannot resolve repository %s", args[1]), err, nil)
	}

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return err
	}
	applyMineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := newContext()
	defer stop()

	var progress mining.Progress
	if mineProgress {
		progress = newProgressBar(cmd.ErrOrStderr())
	}

	sum, err := mineRepository(ctx, dbPath, repoRoot, cfg, progress, logger)
	if !quiet {
		printSummary(cmd.OutOrStdout(), sum, time.Since(start))
	}
	return err
}

// applyMineFlags overrides config values with the flags the user set.
func applyMineFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("names") {
		cfg.Names = discovery.SplitCSV(mineNames)
	}
	if flags.Changed("names-exclude") {
		cfg.NamesExclude = discovery.SplitCSV(mineNamesExclude)
	}
	if flags.Changed("exclude") {
		cfg.Exclude = mineExclude
	}
	if flags.Changed("backend") {
		cfg.Backend = mineBackend
	}
}

// mineRepository wires the backend, store and analyzers and runs one mining pass.
func mineRepository(ctx context.Context, dbPath, repoRoot string, cfg *config.Config,
	progress mining.Progress, logger *slog.Logger) (sum mining.Summary, err error) {
	finder := discovery.Finder{
		Root:         repoRoot,
		Names:        cfg.Names,
		NamesExclude: cfg.NamesExclude,
		ExcludeDirs:  cfg.Exclude,
	}
	if err := finder.Validate(); err != nil {
		return sum, usageError(err)
	}

	classifier, err := bugfix.NewClassifier(cfg.BugPatterns...)
	if err != nil {
		return sum, err
	}

	vcs, err := openVCS(ctx, repoRoot, cfg, logger)
	if err != nil {
		return sum, err
	}

	db, err := storage.Open(dbPath, logger)
	if err != nil {
		return sum, err
	}
	defer func() {
		err = stderrors.Join(err, db.Close())
	}()

	miner := mining.New(vcs, db, mining.Options{
		Repository: repoRoot,
		Finder:     finder,
		Indexes:    funcindex.NewFactory(repoRoot, logger),
		Classifier: classifier,
		Progress:   progress,
		Journal:    db,
	}, logger)

	return miner.Run(ctx)
}

// openVCS selects the backend named by cfg.Backend.
func openVCS(ctx context.Context, repoRoot string, cfg *config.Config, logger *slog.Logger) (backends.VCS, error) {
	id, err := backends.ParseBackendID(cfg.Backend)
	if err != nil {
		return nil, usageError(err)
	}

	if id == backends.BackendGoGit {
		adapter, err := gogit.Open(repoRoot, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}

	adapter, err := git.NewGitAdapter(ctx, repoRoot, git.Options{
		Timeout: time.Duration(cfg.Git.TimeoutMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// printSummary reports the outcome of a run and its resource usage.
func printSummary(w io.Writer, sum mining.Summary, elapsed time.Duration) {
	if sum.Eligible > 0 {
		fmt.Fprintf(w, "Recorded %d of %d revisions (%d already known), %s\n",
			sum.Recorded, sum.Eligible, sum.Skipped, sum.State)
	}
	fmt.Fprintln(w, resourceUsage(elapsed))
}
