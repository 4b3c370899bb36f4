package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/texbuild/internal/compile"
	"git.home.luguber.info/inful/texbuild/internal/config"
	"git.home.luguber.info/inful/texbuild/internal/events"
	"git.home.luguber.info/inful/texbuild/internal/history"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/retry"
)

// runtime holds the optional collaborators configured for a command: metrics,
// compile history and the NATS publisher.
type runtime struct {
	cfg       *config.Config
	recorder  *metrics.PrometheusRecorder
	history   history.Store
	publisher *events.NATSPublisher
}

// openRuntime connects what cfg enables. The NATS connection is only made when
// a command will publish.
func openRuntime(cfg *config.Config, publish bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, history: history.NoopStore{}}

	if cfg.Metrics.Textfile != "" || cfg.Metrics.ListenAddr != "" {
		rt.recorder = metrics.NewPrometheusRecorder(nil)
	}

	if cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.history = store
	}

	if publish {
		if cfg.Events.NATSURL == "" {
			slog.Warn("Publish action requested but events.nats_url is empty; PDFs will not be announced")
		} else {
			p, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, retry.FromConfig(cfg.Events.Retry))
			if err != nil {
				rt.Close()
				return nil, err
			}
			rt.publisher = p
		}
	}
	return rt, nil
}

// serviceOptions wires the runtime into a compile.Service.
func (rt *runtime) serviceOptions() []compile.Option {
	opts := []compile.Option{compile.WithHistory(rt.history)}
	if rt.recorder != nil {
		opts = append(opts, compile.WithRecorder(rt.recorder))
	}
	if rt.publisher != nil {
		opts = append(opts, compile.WithPublisher(rt.publisher))
	}
	return opts
}

// flushMetrics writes the textfile when one is configured.
func (rt *runtime) flushMetrics() {
	if rt.recorder == nil || rt.cfg.Metrics.Textfile == "" {
		return
	}
	if err := rt.recorder.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

// Close releases the history database and the NATS connection.
func (rt *runtime) Close() {
	if rt.publisher != nil {
		rt.publisher.Close()
	}
	if err := rt.history.Close(); err != nil {
		slog.Warn("Failed to close history store", logfields.Error(err))
	}
}
