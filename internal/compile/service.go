package compile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/texbuild/internal/config"
	"git.home.luguber.info/inful/texbuild/internal/events"
	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/history"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/tex"
	"git.home.luguber.info/inful/texbuild/internal/weave"
)

// Request asks for one document to be compiled.
type Request struct {
	Target string
	Action Action
}

// Service compiles documents according to a configuration.
type Service struct {
	cfg       *config.Config
	runner    process.Runner
	lookup    process.LookupFunc
	recorder  metrics.Recorder
	history   history.Store
	viewer    Viewer
	publisher events.Publisher
	newRunID  func() string

	resolver *tex.ProgramResolver
	weaver   weave.Weaver
	compiler tex.Compiler

	mu     sync.Mutex
	active map[string]struct{}
}

// Option customizes a Service.
type Option func(*Service)

// WithRunner replaces the os/exec runner.
func WithRunner(r process.Runner) Option { return func(s *Service) { s.runner = r } }

// WithLookup replaces executable lookup.
func WithLookup(l process.LookupFunc) Option { return func(s *Service) { s.lookup = l } }

// WithRecorder enables metrics.
func WithRecorder(r metrics.Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithHistory records every run in store.
func WithHistory(store history.Store) Option { return func(s *Service) { s.history = store } }

// WithViewer sets the view action handler.
func WithViewer(v Viewer) Option { return func(s *Service) { s.viewer = v } }

// WithPublisher sets the publish action handler.
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithRunIDs replaces run ID generation.
func WithRunIDs(gen func() string) Option { return func(s *Service) { s.newRunID = gen } }

// WithWeaver replaces the R weaver.
func WithWeaver(w weave.Weaver) Option { return func(s *Service) { s.weaver = w } }

// NewService builds the resolver, weaver and compiler strategy from cfg.
func NewService(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		history:  history.NoopStore{},
		newRunID: uuid.NewString,
		active:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = process.NewExecRunner()
	}
	if s.lookup == nil {
		s.lookup = process.SearchPath(cfg.TeX.SearchPaths...)
	}
	if s.viewer == nil {
		s.viewer = NewCommandViewer(s.runner, cfg.Viewer.Command)
	}
	if s.weaver == nil {
		s.weaver = weave.NewRWeaver(s.runner, weave.Settings{
			DefaultMethod: weave.Method(cfg.Weave.DefaultMethod),
			RBinary:       cfg.Weave.RBinary,
			RscriptBinary: cfg.Weave.RscriptBinary,
		})
	}
	s.resolver = tex.NewProgramResolver(string(cfg.TeX.DefaultProgram), s.lookup)
	s.compiler = tex.NewCompiler(tex.CompilerSettings{
		UseTexi2Dvi: cfg.TeX.UseTexi2Dvi,
		MaxPasses:   cfg.TeX.MaxPasses,
	}, s.runner, s.lookup)
	slog.Debug("Compile service ready", slog.String("strategy", s.compiler.Name()))
	return s
}

// Compile runs one pipeline, writing its output to sink. A second request for a
// target that is still compiling is refused.
func (s *Service) Compile(ctx context.Context, req Request, sink OutputSink) Outcome {
	key := targetKey(req.Target)
	runID := s.newRunID()
	started := time.Now()

	if !s.acquire(key) {
		msg := fmt.Sprintf("A compile of '%s' is already running", filepath.Base(key))
		sink.Output(msg + "\n")
		out := Outcome{
			RunID:   runID,
			Target:  req.Target,
			State:   StateDone,
			Failure: FailureBusy,
			Err:     ferrors.NewError(ferrors.CategoryProcess, msg).Build(),
		}
		s.observe(ctx, out, started)
		return out
	}
	defer s.release(key)

	var onCompleted func()
	if doc, err := tex.NewTargetDocument(req.Target); err == nil {
		onCompleted = completionFor(ctx, req.Action, doc, runID, s.viewer, s.publisher)
	}

	p := NewPipeline(req.Target, sink, Dependencies{
		Runner:   s.runner,
		Resolver: s.resolver,
		Weaver:   s.weaver,
		Compiler: s.compiler,
		Recorder: s.recorder,
	}, Options{
		CleanOutput: s.cfg.TeX.CleanOutputEnabled(),
		ShellEscape: s.cfg.TeX.ShellEscape,
	}, onCompleted).WithRunID(runID)

	out := p.Run(ctx)
	s.observe(ctx, out, started)
	return out
}

// CompileAll compiles distinct documents concurrently, at most jobs at a time.
// Requests naming a document already in the batch share the first request's
// outcome instead of compiling it again. Each document's output is buffered and
// written to sink in request order. A single document streams directly to sink.
func (s *Service) CompileAll(ctx context.Context, reqs []Request, sink OutputSink, jobs int) []Outcome {
	unique, slot := dedupeRequests(reqs)
	results := s.compileDistinct(ctx, unique, sink, jobs)

	outcomes := make([]Outcome, len(reqs))
	for i, u := range slot {
		outcomes[i] = results[u]
	}
	return outcomes
}

func (s *Service) compileDistinct(ctx context.Context, reqs []Request, sink OutputSink, jobs int) []Outcome {
	if len(reqs) == 1 {
		return []Outcome{s.Compile(ctx, reqs[0], sink)}
	}
	if jobs < 1 {
		jobs = 1
	}

	outcomes := make([]Outcome, len(reqs))
	buffers := make([]*BufferSink, len(reqs))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, req := range reqs {
		buffers[i] = &BufferSink{}
		g.Go(func() error {
			buffers[i].Output(fmt.Sprintf("==> %s <==\n", req.Target))
			outcomes[i] = s.Compile(ctx, req, buffers[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range buffers {
		b.FlushTo(sink)
	}
	return outcomes
}

// dedupeRequests keeps the first request per document. slot maps each input
// request to its index in unique.
func dedupeRequests(reqs []Request) (unique []Request, slot []int) {
	seen := make(map[string]int, len(reqs))
	slot = make([]int, len(reqs))
	for i, req := range reqs {
		key := targetKey(req.Target)
		u, ok := seen[key]
		if !ok {
			u = len(unique)
			seen[key] = u
			unique = append(unique, req)
		} else {
			slog.Debug("Skipping duplicate compile request", logfields.Target(req.Target))
		}
		slot[i] = u
	}
	return unique, slot
}

func targetKey(target string) string {
	if abs, err := filepath.Abs(target); err == nil {
		return abs
	}
	return target
}

// FirstFailure returns the error of the first failed outcome, or nil.
func FirstFailure(outcomes []Outcome) error {
	for _, o := range outcomes {
		if !o.Succeeded {
			if o.Err != nil {
				return o.Err
			}
			return ferrors.InternalError("compile failed without an error").Build()
		}
	}
	return nil
}

func (s *Service) observe(ctx context.Context, out Outcome, started time.Time) {
	result := "success"
	if !out.Succeeded {
		result = "failed"
	}
	s.recorder.ObserveCompileDuration(out.Duration)
	s.recorder.IncCompileOutcome(result)

	diagnostics := map[string]int{}
	for _, e := range out.Entries {
		diagnostics[e.Type.String()]++
	}
	rec := history.Record{
		RunID:       out.RunID,
		Target:      out.Target,
		Program:     out.Program,
		Strategy:    out.Strategy,
		Succeeded:   out.Succeeded,
		Failure:     string(out.Failure),
		ExitStatus:  out.ExitStatus,
		Diagnostics: diagnostics,
		PDFPath:     out.PDFPath,
		StartedAt:   started,
		Duration:    out.Duration,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		slog.Warn("Failed to record compile history", logfields.RunID(out.RunID), logfields.Error(err))
	}
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[key]; busy {
		return false
	}
	s.active[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}
