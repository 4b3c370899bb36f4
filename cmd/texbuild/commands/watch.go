package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/texbuild/internal/compile"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	File   string `arg:"" name:"file" help:"Document to watch" type:"path"`
	Action string `help:"Run after each successful compile: view or publish"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	action := compile.ParseAction(w.Action)

	rt, err := openRuntime(cfg, action == compile.ActionPublish)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Metrics.ListenAddr != "" {
		srv, err := metrics.StartServer(cfg.Metrics.ListenAddr, rt.recorder.Registry())
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("Failed to stop metrics server", logfields.Error(err))
			}
		}()
	}

	svc := compile.NewService(cfg, rt.serviceOptions()...)
	sink := compile.NewWriterSink(g.out())
	watcher, err := watch.New(w.File, func(ctx context.Context, reason string) {
		slog.Info("Recompiling", logfields.Target(w.File), slog.String("reason", reason))
		svc.Compile(ctx, compile.Request{Target: w.File, Action: action}, sink)
		rt.flushMetrics()
	}, watch.Options{
		Debounce: cfg.Watch.DebounceDuration(),
		Interval: cfg.Watch.IntervalDuration(),
	})
	if err != nil {
		return err
	}
	return watcher.Run(g.ctx())
}
