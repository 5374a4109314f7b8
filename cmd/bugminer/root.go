package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bugminer/internal/config"
	"bugminer/internal/slogutil"
	"bugminer/internal/version"
)

var (
	// verbosity is the count of -v flags
	verbosity int
	// quiet suppresses logs and the resource summary
	quiet bool
	// logFormatFlag overrides logging.format from the config
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "bugminer",
	Short: "bugminer - mine version history for bug-prone code",
	Long: `bugminer walks the commit history of a git repository, attributes every
change to the files and functions it touched, and classifies commits whose
message references a bug. The facts land in a SQLite database whose views
rank bug-prone, frequently changed and co-changed code.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("bugminer version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress logs and the resource summary")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human or json (default from config)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})
}

// newLogger builds the logger for a command from the config and the
// verbosity flags. When logging.file is set every record is also appended
// there as JSON; the returned func closes that file.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func(), error) {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	base := slogutil.LevelFromString(cfg.Logging.Level)
	logger := slogutil.NewFormatLogger(w, format, slogutil.LevelFromVerbosity(base, verbosity, quiet))

	if cfg.Logging.File == "" {
		return logger, func() {}, nil
	}

	fileLogger, f, err := slogutil.NewFileLogger(cfg.Logging.File, slogutil.LevelFromVerbosity(base, verbosity, false))
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	tee := slogutil.NewTeeHandler(logger.Handler(), fileLogger.Handler())
	return slog.New(tee), func() { _ = f.Close() }, nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
