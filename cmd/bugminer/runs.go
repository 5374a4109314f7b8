package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bugminer/internal/storage"
)

var (
	runsLimit  int
	runsFormat string
)

var runsCmd = &cobra.Command{
	Use:   "runs <database>",
	Short: "List past mining runs",
	Long: `List the mining run journal of a database, newest first.

Examples:
  bugminer runs bugs.db
  bugminer runs bugs.db --limit 1 --format json`,
	Args: exactArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 for all)")
	runsCmd.Flags().StringVar(&runsFormat, "format", string(FormatHuman), "Output format (human, json, yaml, toml)")
	rootCmd.AddCommand(runsCmd)
}

// RunsResponseCLI lists journal rows for output.
type RunsResponseCLI struct {
	Runs []storage.RunRecord `json:"runs" yaml:"runs" toml:"runs"`
}

func runRuns(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(runsFormat)
	if err != nil {
		return usageError(err)
	}
	if runsLimit < 0 {
		return usageError(fmt.Errorf("limit must not be negative"))
	}

	db, err := openExistingDB(cmd, args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := newContext()
	defer stop()

	runs, err := db.Runs(ctx, runsLimit)
	if err != nil {
		return err
	}

	output, err := FormatResponse(&RunsResponseCLI{Runs: runs}, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
