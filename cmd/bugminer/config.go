package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"bugminer/internal/config"
	"bugminer/internal/paths"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect bugminer configuration",
	Long:  "View or create the bugminer configuration stored in <repository>/.bugminer/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show [repository]",
	Short: "Show the effective configuration",
	Long: `Display the configuration a mine run in [repository] would use, after
BUGMINER_* environment overrides. The repository defaults to the current
directory.

Examples:
  bugminer config show
  bugminer config show ./repo --format json
  bugminer config show --format toml`,
	Args: rangeArgs(0, 1),
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [repository]",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to [repository]/.bugminer/config.json.
An existing file is left untouched unless --force is given.

Examples:
  bugminer config init
  bugminer config init ./repo --force`,
	Args: rangeArgs(0, 1),
	RunE: runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  exactArgs(0),
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", string(FormatHuman), "Output format (human, json, toml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string         `json:"configPath,omitempty"`
	UsedDefaults bool           `json:"usedDefaults"`
	Config       *config.Config `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	repo := "."
	if len(args) == 1 {
		repo = args[0]
	}
	repoRoot, err := paths.ResolveRoot(repo)
	if err != nil {
		return usageError(err)
	}

	result, err := config.LoadConfigWithDetails(repoRoot)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch OutputFormat(strings.ToLower(configFormat)) {
	case FormatJSON:
		return writeConfigJSON(out, result)
	case FormatTOML:
		return toml.NewEncoder(out).Encode(result.Config)
	case FormatHuman:
		return writeConfigHuman(out, result)
	default:
		return usageError(fmt.Errorf("unsupported format: %s", configFormat))
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	repo := "."
	if len(args) == 1 {
		repo = args[0]
	}
	repoRoot, err := paths.ResolveRoot(repo)
	if err != nil {
		return usageError(err)
	}

	path, err := initConfig(repoRoot, configForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// initConfig saves the default configuration under repoRoot and returns the
// file written.
func initConfig(repoRoot string, force bool) (string, error) {
	path := filepath.Join(repoRoot, config.DirName, "config.json")
	if _, err := os.Stat(path); err == nil && !force {
		return "", usageError(fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.DefaultConfig().Save(repoRoot); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}

func writeConfigJSON(w io.Writer, result *config.LoadResult) error {
	data, err := json.MarshalIndent(ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		Config:       result.Config,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeConfigHuman(w io.Writer, result *config.LoadResult) error {
	source := result.ConfigPath
	if result.UsedDefaults {
		source = "defaults (no config file)"
	}

	var body bytes.Buffer
	if err := toml.NewEncoder(&body).Encode(result.Config); err != nil {
		return err
	}

	fmt.Fprintln(w, headerColor.Sprint("bugminer configuration"))
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Source: %s\n\n", source)
	_, err := w.Write(body.Bytes())
	return err
}

// envVars lists the environment overrides viper binds.
var envVars = map[string]string{
	"names":          "Comma-separated file name globs to include",
	"namesExclude":   "Comma-separated file name globs to exclude",
	"exclude":        "Directories to exclude",
	"backend":        "VCS backend (cli, gogit)",
	"bugPatterns":    "Bug reference patterns, each with one capture group",
	"git.timeoutMs":  "Per-command git timeout in milliseconds",
	"logging.format": "Log format (human, json)",
	"logging.level":  "Log level (debug, info, warn, error)",
	"logging.file":   "File receiving a JSON copy of every log record",
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	keys := make([]string, 0, len(envVars))
	for k := range envVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(cmd.OutOrStdout(), "Supported environment variables:")
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-26s %s\n", envName(k), envVars[k])
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nFlags given to a command take precedence over the environment.")
}

// envName maps a config key to its variable, e.g. git.timeoutMs -> BUGMINER_GIT_TIMEOUTMS.
func envName(key string) string {
	return config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
