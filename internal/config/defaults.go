package config

import "runtime"

const (
	defaultMaxPasses    = 3
	defaultSubject      = "texbuild.pdf.published"
	defaultRetries      = 2
	defaultRetryInitial = "500ms"
	defaultRetryMax     = "5s"
	defaultDebounce     = "500ms"
	defaultInterval     = "0s"
	defaultRBinary      = "R"
	defaultRscript      = "Rscript"
	defaultLinuxViewer  = "xdg-open"
	defaultDarwinViewer = "open"
)

func applyDefaults(cfg *Config) {
	if cfg.TeX.DefaultProgram == "" {
		cfg.TeX.DefaultProgram = ProgramPdfLaTeX
	}
	if cfg.TeX.MaxPasses == 0 {
		cfg.TeX.MaxPasses = defaultMaxPasses
	}
	if cfg.TeX.CleanOutput == nil {
		clean := true
		cfg.TeX.CleanOutput = &clean
	}

	if cfg.Weave.DefaultMethod == "" {
		cfg.Weave.DefaultMethod = WeaveSweave
	}
	if cfg.Weave.RBinary == "" {
		cfg.Weave.RBinary = defaultRBinary
	}
	if cfg.Weave.RscriptBinary == "" {
		cfg.Weave.RscriptBinary = defaultRscript
	}

	if cfg.Viewer.Command == "" {
		cfg.Viewer.Command = defaultViewer()
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = defaultSubject
	}
	if cfg.Events.Retry.MaxRetries == nil {
		retries := defaultRetries
		cfg.Events.Retry.MaxRetries = &retries
	}
	if cfg.Events.Retry.Backoff == "" {
		cfg.Events.Retry.Backoff = RetryBackoffLinear
	}
	if cfg.Events.Retry.Initial == "" {
		cfg.Events.Retry.Initial = defaultRetryInitial
	}
	if cfg.Events.Retry.Max == "" {
		cfg.Events.Retry.Max = defaultRetryMax
	}

	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = defaultDebounce
	}
	if cfg.Watch.Interval == "" {
		cfg.Watch.Interval = defaultInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}

func defaultViewer() string {
	if runtime.GOOS == "darwin" {
		return defaultDarwinViewer
	}
	return defaultLinuxViewer
}
