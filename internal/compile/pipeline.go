package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuild/internal/cleanup"
	"git.home.luguber.info/inful/texbuild/internal/concordance"
	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/magic"
	"git.home.luguber.info/inful/texbuild/internal/metrics"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/tex"
	"git.home.luguber.info/inful/texbuild/internal/texlog"
	"git.home.luguber.info/inful/texbuild/internal/weave"
)

// ProgramResolver selects the engine for a document.
type ProgramResolver interface {
	Resolve(comments magic.MagicComments) (string, error)
}

// Dependencies are the collaborators a Pipeline drives.
type Dependencies struct {
	Runner   process.Runner
	Resolver ProgramResolver
	Weaver   weave.Weaver
	Compiler tex.Compiler
	Recorder metrics.Recorder
	// Remove deletes auxiliary files; nil uses cleanup.RemoveIfExists.
	Remove cleanup.RemoveFunc
}

// Options are the per-run settings taken from configuration.
type Options struct {
	CleanOutput bool
	ShellEscape bool
}

// Outcome is the result of one run.
type Outcome struct {
	RunID      string
	Target     string
	State      State
	Succeeded  bool
	Failure    FailureKind
	ExitStatus int
	Program    string
	Strategy   string
	// Entries are the diagnostics shown to the user, LaTeX entries (after
	// concordance mapping) first.
	Entries  texlog.LogEntries
	PDFPath  string
	Duration time.Duration
	// Err is a classified error describing the failure; nil on success.
	Err error
}

// Pipeline owns a single compilation. It is not reusable: Run and Start may be
// called once in total.
type Pipeline struct {
	runID       string
	target      string
	sink        OutputSink
	deps        Dependencies
	opts        Options
	onCompleted func()

	started   atomic.Bool
	state     State
	trail     []State
	enteredAt time.Time

	doc      tex.TargetDocument
	program  string
	comments magic.MagicComments
	conc     concordance.Concordance
	aux      *cleanup.AuxFiles
}

// NewPipeline prepares a run for target. onCompleted, when non-nil, is called
// once after a successful compile.
func NewPipeline(target string, sink OutputSink, deps Dependencies, opts Options, onCompleted func()) *Pipeline {
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	return &Pipeline{
		runID:       uuid.NewString(),
		target:      target,
		sink:        sink,
		deps:        deps,
		opts:        opts,
		onCompleted: onCompleted,
		state:       StateInit,
		trail:       []State{StateInit},
		aux:         cleanup.NewAuxFiles(deps.Remove),
	}
}

// WithRunID replaces the generated run ID.
func (p *Pipeline) WithRunID(id string) *Pipeline {
	if id != "" {
		p.runID = id
	}
	return p
}

// RunID identifies this run in logs, history and events.
func (p *Pipeline) RunID() string { return p.runID }

// State returns the current stage.
func (p *Pipeline) State() State { return p.state }

// Trail returns the states visited so far, in order.
func (p *Pipeline) Trail() []State { return append([]State(nil), p.trail...) }

// Start runs the pipeline on its own goroutine. The channel receives the
// outcome and is then closed.
func (p *Pipeline) Start(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- p.Run(ctx)
	}()
	return ch
}

// Run executes the pipeline and blocks until it is done.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	if !p.started.CompareAndSwap(false, true) {
		slog.Error("Pipeline already ran", logfields.RunID(p.runID), logfields.Target(p.target))
		return Outcome{
			RunID:  p.runID,
			Target: p.target,
			State:  p.state,
			Err:    ferrors.InternalError("pipeline already ran").Build(),
		}
	}

	start := time.Now()
	p.enteredAt = start
	defer p.aux.Cleanup()

	out := p.run(ctx)
	out.RunID = p.runID
	out.Target = p.target
	out.State = p.state
	out.Program = p.program
	if p.deps.Compiler != nil {
		out.Strategy = p.deps.Compiler.Name()
	}
	out.Duration = time.Since(start)

	slog.Info("Compile finished",
		logfields.RunID(p.runID),
		logfields.Target(p.target),
		slog.Bool("succeeded", out.Succeeded),
		slog.String("failure", string(out.Failure)),
		logfields.Duration(out.Duration))
	return out
}

func (p *Pipeline) run(ctx context.Context) Outcome {
	doc, err := tex.NewTargetDocument(p.target)
	if err != nil {
		return p.fail(FailureValidation, ferrors.ValidationError(fmt.Sprintf("Invalid filename: '%s'", p.target)).WithCause(err).Build())
	}
	p.doc = doc
	if name := doc.Filename(); strings.ContainsFunc(name, unicode.IsSpace) {
		return p.fail(FailureValidation, ferrors.ValidationError(
			fmt.Sprintf("Invalid filename: '%s' (TeX does not understand paths with spaces)", name)).
			WithContext("path", doc.Path()).
			Build())
	}

	p.transition(StateResolvingProgram)
	comments, err := magic.ParseFile(doc.Path())
	if err != nil {
		slog.Warn("Failed to read magic comments", logfields.RunID(p.runID), logfields.Error(err))
		comments = nil
	}
	p.comments = comments

	program, err := p.deps.Resolver.Resolve(comments)
	if err != nil {
		return p.fail(FailureResolution, err)
	}
	p.program = program
	slog.Debug("Resolved TeX program", logfields.RunID(p.runID), logfields.Program(program))

	if doc.IsLiterate() {
		p.transition(StateWeaving)
		res := p.deps.Weaver.Weave(ctx, doc, comments)
		if !res.Succeeded {
			return p.fail(FailureWeave, ferrors.WeaveError(res.ErrorMessage).WithContext("path", doc.Path()).Build())
		}
		p.conc = res.Concordance
	}

	p.transition(StateCompiling)
	return p.compile(ctx)
}

func (p *Pipeline) compile(ctx context.Context) Outcome {
	opts := tex.NewCompileOptions(p.opts.ShellEscape)
	if version, err := tex.ProbeVersion(ctx, p.deps.Runner, p.program); err != nil {
		slog.Warn("Error probing for LaTeX version", logfields.Program(p.program), logfields.Error(err))
	} else {
		opts.VersionInfo = version
		slog.Debug("LaTeX version", logfields.Program(p.program), slog.String("version", version))
	}

	texPath := p.doc.TexPath()
	cleanup.RemoveLogs(texPath, p.deps.Remove)
	if p.opts.CleanOutput {
		p.aux.Init(texPath)
	}

	p.sink.Output("Running LaTeX compiler...")
	res, err := p.deps.Compiler.Compile(ctx, p.program, texPath, opts)
	if err != nil {
		p.sink.Output("\n")
		return p.fail(FailureInvocation, ferrors.CompileError("Unable to compile pdf: "+err.Error()).WithCause(err).Build())
	}

	p.transition(StateReporting)
	if res.Succeeded() {
		p.sink.Output("completed\n")
		p.aux.Cleanup()
		if p.onCompleted != nil {
			p.onCompleted()
		}
		p.transition(StateDone)
		p.deps.Recorder.IncStageResult(StateCompiling.String(), metrics.ResultSuccess)
		return Outcome{Succeeded: true, PDFPath: p.doc.PDFPath()}
	}

	p.sink.Output("\n")
	p.aux.PreserveLog()
	entries := p.showDiagnostics(texPath)
	failed := res.Program
	if failed == "" {
		failed = p.program
	}
	msg := fmt.Sprintf("Error running %s (exit code %d)", failed, res.ExitStatus)
	if len(entries) == 0 {
		p.sink.Output(msg + "\n")
		if output := res.Output(); output != "" {
			p.sink.Output(output + "\n")
		}
	}

	p.transition(StateDone)
	p.deps.Recorder.IncStageResult(StateCompiling.String(), metrics.ResultFailed)
	return Outcome{
		Failure:    FailureCompile,
		ExitStatus: res.ExitStatus,
		Entries:    entries,
		Err: ferrors.CompileError(msg).
			WithContext("program", failed).
			WithContext("exit_status", res.ExitStatus).
			WithContext("entries", len(entries)).
			Build(),
	}
}

// showDiagnostics writes the entries of the engine and BibTeX logs and returns
// them. Engine entries are mapped back to the literate source.
func (p *Pipeline) showDiagnostics(texPath string) texlog.LogEntries {
	base := strings.TrimSuffix(texPath, ".tex")

	latex := p.parseLog(base+".log", texlog.ParseLatexLog)
	latex = p.conc.MapAll(latex)
	p.showEntries("LaTeX errors:", latex)

	bib := p.parseLog(base+".blg", texlog.ParseBibtexLog)
	p.showEntries("BibTeX errors:", bib)

	all := append(append(texlog.LogEntries(nil), latex...), bib...)
	for _, t := range []texlog.EntryType{texlog.Error, texlog.Warning, texlog.Box} {
		p.deps.Recorder.AddDiagnostics(t.String(), all.Count(t))
	}
	return all
}

func (p *Pipeline) parseLog(path string, parse func(string) (texlog.LogEntries, error)) texlog.LogEntries {
	entries, err := parse(path)
	if err != nil {
		if errors.Is(err, texlog.ErrLogNotFound) {
			slog.Debug("No log to parse", logfields.Path(path))
		} else {
			slog.Warn("Failed to parse log", logfields.Path(path), logfields.Error(err))
		}
		return nil
	}
	return entries
}

func (p *Pipeline) showEntries(header string, entries texlog.LogEntries) {
	if len(entries) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("\n" + header + "\n")
	for _, e := range entries {
		b.WriteString(e.Format(p.doc.Dir()))
		b.WriteString("\n")
	}
	p.sink.Output(b.String())
}

// fail reports err to the sink as one message and ends the run.
func (p *Pipeline) fail(kind FailureKind, err error) Outcome {
	p.sink.Output(userMessage(err) + "\n")
	failedIn := p.state
	p.transition(StateDone)
	p.deps.Recorder.IncStageResult(failedIn.String(), metrics.ResultFailed)
	return Outcome{Failure: kind, Err: err}
}

// transition moves the pipeline to the next stage. It refuses moves that are not
// in the state graph and re-entry into a visited stage.
func (p *Pipeline) transition(to State) bool {
	from := p.state
	if !transitionAllowed(from, to) || p.visited(to) {
		slog.Error("Illegal pipeline transition",
			logfields.RunID(p.runID),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
		return false
	}

	now := time.Now()
	if from != StateInit {
		p.deps.Recorder.ObserveStageDuration(from.String(), now.Sub(p.enteredAt))
	}
	p.state = to
	p.trail = append(p.trail, to)
	p.enteredAt = now
	slog.Debug("Pipeline transition", logfields.RunID(p.runID), logfields.Stage(from.String()), logfields.State(to.String()))
	return true
}

func (p *Pipeline) visited(s State) bool {
	for _, v := range p.trail {
		if v == s {
			return true
		}
	}
	return false
}

func userMessage(err error) string {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.Message()
	}
	return err.Error()
}
