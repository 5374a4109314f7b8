package main

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugminer/internal/errors"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitRepository = 3
	exitStore      = 4
)

// exitCode maps an error to the process exit code by its MinerError code.
func exitCode(err error) int {
	if errors.IsStoreError(err) {
		return exitStore
	}
	switch errors.CodeOf(err) {
	case "":
		return exitOK
	case errors.InvalidConfig:
		return exitUsage
	case errors.RepositoryAccess, errors.DiffParse:
		return exitRepository
	default:
		return exitFailure
	}
}

// printError writes err and any suggested fixes to w.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var me *errors.MinerError
	if !stderrors.As(err, &me) || len(me.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(w, "Suggested fixes:")
	for _, fix := range me.SuggestedFixes {
		switch {
		case fix.Command != "" && fix.Description != "":
			fmt.Fprintf(w, "  $ %s\n    %s\n", fix.Command, fix.Description)
		case fix.Command != "":
			fmt.Fprintf(w, "  $ %s\n", fix.Command)
		default:
			fmt.Fprintf(w, "  - %s\n", fix.Description)
		}
	}
}

// usageError marks a command-line mistake so it exits with exitUsage.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewMinerError(errors.InvalidConfig, "Invalid usage", err, nil)
}

// exactArgs is cobra.ExactArgs with usage errors mapped to exitUsage.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.ExactArgs(n)(cmd, args))
	}
}

// rangeArgs is cobra.RangeArgs with usage errors mapped to exitUsage.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.RangeArgs(lo, hi)(cmd, args))
	}
}
