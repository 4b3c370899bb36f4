package config

import (
	"strings"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
)

// normalizeConfig canonicalizes enumerations. Unknown values are config errors
// rather than silently replaced.
func normalizeConfig(cfg *Config) error {
	program, err := programNormalizer.Parse(string(cfg.TeX.DefaultProgram))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid tex configuration").Build()
	}
	cfg.TeX.DefaultProgram = program

	method, err := weaveNormalizer.Parse(string(cfg.Weave.DefaultMethod))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid weave configuration").Build()
	}
	cfg.Weave.DefaultMethod = method

	backoff, err := retryBackoffNormalizer.Parse(string(cfg.Events.Retry.Backoff))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid events configuration").Build()
	}
	cfg.Events.Retry.Backoff = backoff

	level, err := logLevelNormalizer.Parse(string(cfg.Logging.Level))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid logging configuration").Build()
	}
	cfg.Logging.Level = level

	format, err := logFormatNormalizer.Parse(string(cfg.Logging.Format))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid logging configuration").Build()
	}
	cfg.Logging.Format = format

	cfg.Viewer.Command = strings.TrimSpace(cfg.Viewer.Command)
	cfg.Events.NATSURL = strings.TrimSpace(cfg.Events.NATSURL)
	cfg.Events.Retry.Initial = strings.TrimSpace(cfg.Events.Retry.Initial)
	cfg.Events.Retry.Max = strings.TrimSpace(cfg.Events.Retry.Max)
	cfg.Watch.Debounce = strings.TrimSpace(cfg.Watch.Debounce)
	cfg.Watch.Interval = strings.TrimSpace(cfg.Watch.Interval)
	return nil
}
