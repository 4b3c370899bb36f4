// Package watch recompiles a document when its sources change.
//
// A Watcher observes the document's directory with fsnotify, coalesces bursts
// of events into one compile after a quiet period and can additionally
// recompile on a fixed interval through gocron. Compiles never overlap: they
// run one at a time on the watcher's loop.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/tex"
	"git.home.luguber.info/inful/texbuild/internal/weave"
)

// Reasons passed to CompileFunc.
const (
	ReasonInitial  = "initial"
	ReasonChange   = "change"
	ReasonInterval = "interval"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// sourceExts are the files whose edits trigger a compile.
var sourceExts = map[string]bool{
	".tex": true,
	".bib": true,
	".sty": true,
	".cls": true,
	".bst": true,
	".rnw": true,
	".snw": true,
	".nw":  true,
}

// CompileFunc compiles the watched document.
type CompileFunc func(ctx context.Context, reason string)

// Options tune a Watcher.
type Options struct {
	// Debounce is the quiet period after the last change before compiling.
	Debounce time.Duration
	// Interval enables periodic recompiles when positive.
	Interval time.Duration
}

// Watcher drives compiles of one document.
type Watcher struct {
	doc     tex.TargetDocument
	compile CompileFunc
	opts    Options

	fs        *fsnotify.Watcher
	scheduler gocron.Scheduler
	trigger   chan string

	readyOnce sync.Once
	ready     chan struct{}
}

// New prepares a watcher for target. It does not start watching until Run.
func New(target string, compile CompileFunc, opts Options) (*Watcher, error) {
	if compile == nil {
		return nil, ferrors.ValidationError("compile function is required").Build()
	}
	doc, err := tex.NewTargetDocument(target)
	if err != nil {
		return nil, ferrors.ValidationError(fmt.Sprintf("Invalid filename: '%s'", target)).WithCause(err).Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.FileSystemError("failed to create file watcher").WithCause(err).Build()
	}

	w := &Watcher{
		doc:     doc,
		compile: compile,
		opts:    opts,
		fs:      fw,
		trigger: make(chan string, 1),
		ready:   make(chan struct{}),
	}
	if opts.Interval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			_ = fw.Close()
			return nil, ferrors.InternalError("failed to create scheduler").WithCause(err).Build()
		}
		if _, err := s.NewJob(
			gocron.DurationJob(opts.Interval),
			gocron.NewTask(w.Trigger, ReasonInterval),
			gocron.WithName("periodic-recompile"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			_ = fw.Close()
			return nil, ferrors.InternalError("failed to schedule periodic recompile").WithCause(err).Build()
		}
		w.scheduler = s
	}
	return w, nil
}

// Ready is closed once Run watches the document directory.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Trigger requests a compile. A request made while another is pending is
// dropped.
func (w *Watcher) Trigger(reason string) {
	select {
	case w.trigger <- reason:
	default:
		slog.Debug("Compile already pending", slog.String("reason", reason))
	}
}

// Run compiles once, then watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	if err := w.fs.Add(w.doc.Dir()); err != nil {
		return ferrors.FileSystemError(fmt.Sprintf("failed to watch %s", w.doc.Dir())).WithCause(err).Build()
	}
	slog.Info("Watching document", logfields.Target(w.doc.Path()), logfields.Path(w.doc.Dir()))
	if w.scheduler != nil {
		w.scheduler.Start()
		slog.Info("Periodic recompile enabled", slog.Duration("interval", w.opts.Interval))
	}
	w.readyOnce.Do(func() { close(w.ready) })

	w.compile(ctx, ReasonInitial)

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if debounce == nil {
				debounce = time.NewTimer(w.opts.Debounce)
			} else {
				debounce.Reset(w.opts.Debounce)
			}
			fire = debounce.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		case <-fire:
			fire = nil
			w.compile(ctx, ReasonChange)
		case reason := <-w.trigger:
			w.compile(ctx, reason)
		}
	}
}

func (w *Watcher) close() {
	if w.scheduler != nil {
		if err := w.scheduler.Shutdown(); err != nil {
			slog.Warn("Failed to stop scheduler", logfields.Error(err))
		}
	}
	if err := w.fs.Close(); err != nil {
		slog.Warn("Failed to close file watcher", logfields.Error(err))
	}
}

// relevant reports whether event concerns a source of the document. Files the
// weave step generates from a literate document are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !sourceExts[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	if w.doc.IsLiterate() {
		generated := filepath.Clean(event.Name)
		if generated == w.doc.TexPath() || generated == w.doc.AncillaryPath(weave.ConcordanceSuffix) {
			return false
		}
	}
	return true
}
