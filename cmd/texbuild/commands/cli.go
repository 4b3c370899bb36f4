// Package commands implements the texbuild command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/texbuild/internal/config"
)

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	// Out receives compiler progress and diagnostics.
	Out io.Writer
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"texbuild.yaml" type:"path"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Compile CompileCmd `cmd:"" help:"Compile documents to PDF"`
	Watch   WatchCmd   `cmd:"" help:"Recompile a document whenever its sources change"`
	History HistoryCmd `cmd:"" help:"Show recent compiles"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Show    VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// ReportedError marks a failure whose details have already been written to
// the user. The CLI only derives the exit code from it.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(c.logLevel(""), config.LogFormatText, os.Stderr))
	return nil
}

// loadConfig reads the configuration file and reconfigures logging from it.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(c.logLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr))
	slog.Debug("Configuration loaded", "path", c.Config)
	return cfg, nil
}

// logLevel resolves the level: --verbose, then TEXBUILD_LOG_LEVEL, then the
// configured level.
func (c *CLI) logLevel(configured config.LogLevel) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if env := os.Getenv("TEXBUILD_LOG_LEVEL"); env != "" {
		configured = config.NormalizeLogLevel(env)
	}
	switch configured {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(level slog.Level, format config.LogFormat, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
