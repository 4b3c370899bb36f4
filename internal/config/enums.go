package config

import (
	"git.home.luguber.info/inful/texbuild/internal/foundation/normalization"
)

// Program is a TeX engine name.
type Program string

const (
	ProgramPdfLaTeX Program = "pdflatex"
	ProgramXeLaTeX  Program = "xelatex"
	ProgramLuaLaTeX Program = "lualatex"
)

var programNormalizer = normalization.NewNormalizer("tex.default_program", map[string]Program{
	"pdflatex": ProgramPdfLaTeX,
	"xelatex":  ProgramXeLaTeX,
	"lualatex": ProgramLuaLaTeX,
}, ProgramPdfLaTeX)

// WeaveMethod selects Sweave or knitr.
type WeaveMethod string

const (
	WeaveSweave WeaveMethod = "sweave"
	WeaveKnitr  WeaveMethod = "knitr"
)

var weaveNormalizer = normalization.NewNormalizer("weave.default_method", map[string]WeaveMethod{
	"sweave": WeaveSweave,
	"knitr":  WeaveKnitr,
}, WeaveSweave)

// RetryBackoffMode selects how retry delays grow.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer("events.retry.backoff", map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("logging.level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("logging.format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
