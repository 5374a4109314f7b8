package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bugminer/internal/errors"
	"bugminer/internal/slogutil"
	"bugminer/internal/storage"
)

// View names accepted by --view.
const (
	ViewBugProne          = "bug-prone"
	ViewFrequentlyChanged = "frequently-changed"
	ViewCoChanged         = "co-changed"
)

var viewTitles = map[string]string{
	ViewBugProne:          "Bug-prone",
	ViewFrequentlyChanged: "Frequently changed",
	ViewCoChanged:         "Co-changed",
}

var (
	reportView   string
	reportKind   string
	reportLimit  int
	reportFormat string
	reportStats  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <database>",
	Short: "Rank bug-prone, frequently changed or co-changed code",
	Long: `Query the views of a database written by "bugminer mine".

  bug-prone           entities changed by bug-fix revisions
  frequently-changed  entities changed by any revision
  co-changed          pairs of entities changed by the same revision

Counts are distinct revisions; ties are ordered by name.

Examples:
  bugminer report bugs.db
  bugminer report bugs.db --view frequently-changed --kind files --limit 20
  bugminer report bugs.db --view co-changed --format yaml`,
	Args: exactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportView, "view", ViewBugProne, "View: bug-prone, frequently-changed, co-changed")
	reportCmd.Flags().StringVar(&reportKind, "kind", string(storage.KindFunctions), "Entity kind: files or functions")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10, "Maximum rows to return (0 for all)")
	reportCmd.Flags().StringVar(&reportFormat, "format", string(FormatHuman), "Output format (human, json, yaml, toml)")
	reportCmd.Flags().BoolVar(&reportStats, "stats", false, "Include table sizes")
	rootCmd.AddCommand(reportCmd)
}

// ReportResponseCLI is one view rendered for output.
type ReportResponseCLI struct {
	View      string                 `json:"view" yaml:"view" toml:"view"`
	Kind      string                 `json:"kind" yaml:"kind" toml:"kind"`
	Ranked    []storage.RankedEntity `json:"ranked,omitempty" yaml:"ranked,omitempty" toml:"ranked,omitempty"`
	CoChanged []storage.CoChange     `json:"coChanged,omitempty" yaml:"coChanged,omitempty" toml:"coChanged,omitempty"`
	Stats     *storage.Stats         `json:"stats,omitempty" yaml:"stats,omitempty" toml:"stats,omitempty"`
}

// reportQuery selects one view.
type reportQuery struct {
	View  string
	Kind  storage.Kind
	Limit int
	Stats bool
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(reportFormat)
	if err != nil {
		return usageError(err)
	}
	q, err := parseReportQuery(reportView, reportKind, reportLimit)
	if err != nil {
		return usageError(err)
	}
	q.Stats = reportStats

	db, err := openExistingDB(cmd, args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := newContext()
	defer stop()

	resp, err := buildReport(ctx, db, q)
	if err != nil {
		return err
	}

	output, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func parseReportQuery(view, kind string, limit int) (reportQuery, error) {
	if _, ok := viewTitles[view]; !ok {
		return reportQuery{}, fmt.Errorf("unknown view %q (want %s, %s or %s)",
			view, ViewBugProne, ViewFrequentlyChanged, ViewCoChanged)
	}
	k, err := storage.ParseKind(kind)
	if err != nil {
		return reportQuery{}, err
	}
	if limit < 0 {
		return reportQuery{}, fmt.Errorf("limit must not be negative")
	}
	return reportQuery{View: view, Kind: k, Limit: limit}, nil
}

func buildReport(ctx context.Context, db *storage.DB, q reportQuery) (*ReportResponseCLI, error) {
	resp := &ReportResponseCLI{View: q.View, Kind: string(q.Kind)}

	var err error
	switch q.View {
	case ViewBugProne:
		resp.Ranked, err = db.BugProne(ctx, q.Kind, q.Limit)
	case ViewFrequentlyChanged:
		resp.Ranked, err = db.FrequentlyChanged(ctx, q.Kind, q.Limit)
	case ViewCoChanged:
		resp.CoChanged, err = db.CoChanged(ctx, q.Kind, q.Limit)
	}
	if err != nil {
		return nil, err
	}

	if q.Stats {
		stats, err := db.Stats(ctx)
		if err != nil {
			return nil, err
		}
		resp.Stats = &stats
	}
	return resp, nil
}

// openExistingDB opens a database for reading, refusing to create a new one.
func openExistingDB(cmd *cobra.Command, path string) (*storage.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewMinerError(errors.StoreFailure,
				fmt.Sprintf("Database %s does not exist", path), nil,
				[]errors.FixAction{{
					Type:        errors.RunCommand,
					Command:     "bugminer mine " + path + " <repository>",
					Description: "Mine a repository into the database first",
				}})
		}
		return nil, errors.NewMinerError(errors.StoreFailure, "Cannot access database", err, nil)
	}

	logger := slogutil.NewLogger(cmd.ErrOrStderr(),
		slogutil.LevelFromVerbosity(slog.LevelWarn, verbosity, quiet))
	return storage.Open(path, logger)
}
