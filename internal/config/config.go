// Package config loads texbuild configuration from YAML, with environment
// variable expansion and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "texbuild.yaml"

// Config is the complete texbuild configuration.
type Config struct {
	TeX     TeXConfig     `yaml:"tex"`
	Weave   WeaveConfig   `yaml:"weave"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Events  EventsConfig  `yaml:"events"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// TeXConfig controls engine selection and invocation.
type TeXConfig struct {
	DefaultProgram Program  `yaml:"default_program"` // pdflatex|xelatex|lualatex
	SearchPaths    []string `yaml:"search_paths"`    // Extra TeX bin directories searched before PATH
	ShellEscape    bool     `yaml:"shell_escape"`
	UseTexi2Dvi    bool     `yaml:"use_texi2dvi"`
	MaxPasses      int      `yaml:"max_passes"`
	CleanOutput    *bool    `yaml:"clean_output"` // Defaults to true
}

// CleanOutputEnabled reports whether auxiliary files are removed after a compile.
func (t TeXConfig) CleanOutputEnabled() bool {
	return t.CleanOutput == nil || *t.CleanOutput
}

// WeaveConfig controls literate document weaving.
type WeaveConfig struct {
	DefaultMethod WeaveMethod `yaml:"default_method"` // sweave|knitr
	RBinary       string      `yaml:"r_binary"`
	RscriptBinary string      `yaml:"rscript_binary"`
}

// ViewerConfig is the command used by the view action. The PDF path is appended
// as the last argument.
type ViewerConfig struct {
	Command string `yaml:"command"`
}

// EventsConfig configures the publish action.
type EventsConfig struct {
	NATSURL string      `yaml:"nats_url"` // Empty disables publishing
	Subject string      `yaml:"subject"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig controls retries of failed event publishes.
type RetryConfig struct {
	MaxRetries *int             `yaml:"max_retries"` // Retries after the first attempt
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    string           `yaml:"initial"`
	Max        string           `yaml:"max"`
}

// HistoryConfig configures the compile history database.
type HistoryConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables history
}

// MetricsConfig configures Prometheus output.
type MetricsConfig struct {
	Textfile   string `yaml:"textfile"`    // Written after each compile command
	ListenAddr string `yaml:"listen_addr"` // Serves /metrics in watch mode
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // Quiet period after a change before recompiling
	Interval string `yaml:"interval"` // Periodic recompile; "0s" disables
}

// DebounceDuration returns the parsed debounce period.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// IntervalDuration returns the parsed recompile interval.
func (w WatchConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(w.Interval)
	return d
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration at configPath. A missing file yields the
// defaults. Environment variables are expanded after .env and .env.local have
// been loaded.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath) // #nosec G304 -- path is chosen by the user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Configuration file not found, using defaults", "path", configPath)
			return Default(), nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			WithContext("path", configPath).
			Build()
	}

	if err := normalizeConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Default()
	example.Events.NATSURL = "${TEXBUILD_NATS_URL}"
	example.History.Path = ".texbuild/history.db"

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal example config").Build()
	}
	header := "# texbuild configuration\n# Values may reference environment variables (${VAR}); .env and .env.local are loaded first.\n"
	// #nosec G306 -- configuration file is not secret
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
