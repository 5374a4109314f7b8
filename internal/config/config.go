package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"bugminer/internal/errors"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// DirName is the per-repository directory holding bugminer's config file.
const DirName = ".bugminer"

// EnvPrefix prefixes every environment variable override (BUGMINER_NAMES, ...).
const EnvPrefix = "BUGMINER"

// Backend names accepted by the backend setting.
const (
	BackendCLI   = "cli"
	BackendGoGit = "gogit"
)

// Config represents the complete bugminer configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	// Names are the include globs matched against file base names.
	Names []string `json:"names" mapstructure:"names" toml:"names"`
	// NamesExclude are globs for base names that are never mined.
	NamesExclude []string `json:"namesExclude" mapstructure:"namesExclude" toml:"namesExclude"`
	// Exclude lists directories (base name or root-relative path) to skip.
	Exclude []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`

	// Backend selects the VCS implementation: "cli" or "gogit".
	Backend string `json:"backend" mapstructure:"backend" toml:"backend"`
	// BugPatterns override the built-in bug-fix message pattern.
	BugPatterns []string `json:"bugPatterns" mapstructure:"bugPatterns" toml:"bugPatterns"`

	Git     GitConfig     `json:"git" mapstructure:"git" toml:"git"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging" toml:"logging"`
}

// GitConfig contains git CLI backend configuration
type GitConfig struct {
	// TimeoutMs bounds each git command; 0 means no timeout.
	TimeoutMs int `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
	// File, when set, receives a JSON copy of every log record.
	File string `json:"file" mapstructure:"file" toml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:      CurrentVersion,
		Names:        []string{"*.php"},
		NamesExclude: []string{},
		Exclude:      []string{},
		Backend:      BackendCLI,
		BugPatterns:  []string{},
		Git: GitConfig{
			TimeoutMs: 0,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadResult describes where the effective configuration came from
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
}

// LoadConfig loads configuration from <repoRoot>/.bugminer/config.json
// and BUGMINER_* environment overrides.
func LoadConfig(repoRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(repoRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports its origin.
func LoadConfigWithDetails(repoRoot string) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DirName))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	result := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.NewMinerError(errors.InvalidConfig, "Failed to read config file", err,
				errors.GetSuggestedFixes(errors.InvalidConfig))
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewMinerError(errors.InvalidConfig, "Failed to decode config", err,
			errors.GetSuggestedFixes(errors.InvalidConfig))
	}
	result.Config = &cfg

	return result, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("names", d.Names)
	v.SetDefault("namesExclude", d.NamesExclude)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("bugPatterns", d.BugPatterns)
	v.SetDefault("git.timeoutMs", d.Git.TimeoutMs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration to <repoRoot>/.bugminer/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return invalid("version", fmt.Sprintf("unsupported config version %d", c.Version))
	}

	switch c.Backend {
	case BackendCLI, BackendGoGit:
	default:
		return invalid("backend", fmt.Sprintf("unknown backend %q (want %s or %s)", c.Backend, BackendCLI, BackendGoGit))
	}

	for _, pattern := range append(append([]string{}, c.Names...), c.NamesExclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return invalid("names", fmt.Sprintf("bad glob %q", pattern))
		}
	}

	for _, pattern := range c.BugPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return invalid("bugPatterns", fmt.Sprintf("bad pattern %q: %v", pattern, err))
		}
		if re.NumSubexp() < 1 {
			return invalid("bugPatterns", fmt.Sprintf("pattern %q has no capture group for the bug id", pattern))
		}
	}

	if c.Git.TimeoutMs < 0 {
		return invalid("git.timeoutMs", "must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "human", "json":
	default:
		return invalid("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}

	return nil
}

func invalid(field, message string) error {
	return errors.NewMinerError(errors.InvalidConfig, "Invalid configuration",
		&ConfigError{Field: field, Message: message},
		errors.GetSuggestedFixes(errors.InvalidConfig))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
