package compile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/cleanup"
	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

const minimalDocument = "\\documentclass{article}\n\\begin{document}\nHello\n\\end{document}\n"

func TestPipeline_RejectsFilenameWithSpaces(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("my paper.tex", minimalDocument)
	sink := &BufferSink{}
	called := 0

	out := NewPipeline(filepath.Join(tc.dir, "my paper.tex"), sink, testDeps(runner), Options{}, func() { called++ }).
		Run(t.Context())

	assert.Equal(t, "Invalid filename: 'my paper.tex' (TeX does not understand paths with spaces)\n", sink.String())
	assert.Equal(t, 0, runner.Calls())
	assert.Equal(t, 0, called)
	assert.False(t, out.Succeeded)
	assert.Equal(t, FailureValidation, out.Failure)
	assert.Equal(t, StateDone, out.State)

	ce, ok := ferrors.AsClassified(out.Err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryValidation, ce.Category())
}

func TestPipeline_SpacesInDirectoryAreAllowed(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.dir = filepath.Join(tc.dir, "my thesis")
	require.NoError(t, os.MkdirAll(tc.dir, 0o750))
	tc.write("paper.tex", minimalDocument)

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), &BufferSink{}, testDeps(runner), Options{}, nil).Run(t.Context())

	assert.True(t, out.Succeeded)
}

func TestPipeline_SuccessCleansAuxiliaryFiles(t *testing.T) {
	tests := []struct {
		name        string
		cleanOutput bool
		wantRemoved bool
	}{
		{name: "clean output", cleanOutput: true, wantRemoved: true},
		{name: "keep output", cleanOutput: false, wantRemoved: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, runner := newToolchain(t)
			tc.write("paper.tex", minimalDocument)
			tc.engine = func(process.Command) process.Result {
				tc.write("paper.aux", "\\relax\n")
				tc.write("paper.out", "")
				tc.write("paper.log", "This is pdfTeX\nOutput written on paper.pdf (1 page).\n")
				tc.write("paper.blg", "This is BibTeX, Version 0.99d\n")
				tc.write("paper.pdf", "%PDF-1.5\n")
				return process.Result{}
			}
			sink := &BufferSink{}
			called := 0

			out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner),
				Options{CleanOutput: tt.cleanOutput}, func() { called++ }).Run(t.Context())

			require.True(t, out.Succeeded)
			assert.Equal(t, 1, called)
			assert.Equal(t, "Running LaTeX compiler...completed\n", sink.String())
			assert.Equal(t, filepath.Join(tc.dir, "paper.pdf"), out.PDFPath)
			assert.Equal(t, "/texbin/pdflatex", out.Program)
			assert.Equal(t, "direct", out.Strategy)
			assert.NoError(t, out.Err)
			assert.True(t, tc.exists("paper.pdf"))
			for _, name := range []string{"paper.aux", "paper.out", "paper.log", "paper.blg"} {
				assert.Equal(t, !tt.wantRemoved, tc.exists(name), name)
			}
			assert.True(t, tc.exists("paper.tex"))
		})
	}
}

func TestPipeline_CompileFailureShowsLogEntries(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	tc.engine = func(process.Command) process.Result {
		tc.write("paper.aux", "\\relax\n")
		tc.write("paper.log", "This is pdfTeX\n(./paper.tex\n./paper.tex:12: Undefined control sequence\nl.12 \\foo\n\n)\n")
		return process.Result{ExitStatus: 1}
	}
	sink := &BufferSink{}
	called := 0

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner),
		Options{CleanOutput: true}, func() { called++ }).Run(t.Context())

	assert.False(t, out.Succeeded)
	assert.Equal(t, FailureCompile, out.Failure)
	assert.Equal(t, 1, out.ExitStatus)
	assert.Equal(t, 0, called)
	assert.Contains(t, sink.String(), "\nLaTeX errors:\npaper.tex (line 12): Undefined control sequence\n")
	assert.NotContains(t, sink.String(), "Error running")
	require.Len(t, out.Entries, 1)

	assert.True(t, tc.exists("paper.log"), "log is kept after a failed compile")
	assert.False(t, tc.exists("paper.aux"))
}

func TestPipeline_CompileFailureWithoutDiagnostics(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	tc.engine = func(process.Command) process.Result {
		tc.write("paper.log", "")
		return process.Result{ExitStatus: 1, Stderr: "fatal: out of memory\n"}
	}
	sink := &BufferSink{}

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner), Options{}, nil).Run(t.Context())

	assert.False(t, out.Succeeded)
	assert.Contains(t, sink.String(), "Error running /texbin/pdflatex (exit code 1)\n")
	assert.Contains(t, sink.String(), "fatal: out of memory\n")
	assert.Empty(t, out.Entries)
}

func TestPipeline_BibtexErrorsAreReported(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	tc.engine = func(process.Command) process.Result {
		tc.write("paper.log", "")
		tc.write("paper.blg", "This is BibTeX\nI couldn't open database file refs.bib\n---line 3 of file paper.aux\n")
		return process.Result{ExitStatus: 1}
	}
	sink := &BufferSink{}

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner), Options{}, nil).Run(t.Context())

	assert.False(t, out.Succeeded)
	assert.Contains(t, sink.String(), "\nBibTeX errors:\n")
	assert.NotContains(t, sink.String(), "LaTeX errors:")
}

func TestPipeline_BibtexFailureNamesBibtex(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	const bibtexOutput = "I found no \\citation commands---while reading file paper.aux"
	tc.engine = func(cmd process.Command) process.Result {
		if cmd.Program == "bibtex" {
			tc.write("paper.blg", "This is BibTeX, Version 0.99d\n"+bibtexOutput+"\n")
			return process.Result{ExitStatus: 2, Stdout: bibtexOutput + "\n"}
		}
		tc.write("paper.aux", "\\citation{knuth}\n\\bibdata{refs}\n")
		tc.write("paper.log", "This is pdfTeX\n")
		return process.Result{}
	}
	sink := &BufferSink{}

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner), Options{}, nil).Run(t.Context())

	assert.False(t, out.Succeeded)
	assert.Equal(t, FailureCompile, out.Failure)
	assert.Equal(t, 2, out.ExitStatus)
	assert.Equal(t, "Running LaTeX compiler...\nError running bibtex (exit code 2)\n"+bibtexOutput+"\n", sink.String())
	assert.Equal(t, []string{"/texbin/pdflatex", "bibtex"}, nonProbePrograms(runner))
	assert.True(t, tc.exists("paper.blg"))
}

func TestPipeline_RemovesStaleLogsThroughRemoveFunc(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	tc.write("paper.log", "stale\n")
	var removed []string
	deps := testDeps(runner)
	deps.Remove = func(path string) error {
		removed = append(removed, path)
		return cleanup.RemoveIfExists(path)
	}

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), &BufferSink{}, deps, Options{}, nil).Run(t.Context())

	require.True(t, out.Succeeded)
	assert.Equal(t, []string{filepath.Join(tc.dir, "paper.log"), filepath.Join(tc.dir, "paper.blg")}, removed)
	assert.False(t, tc.exists("paper.log"))
}

func TestPipeline_InvocationFailure(t *testing.T) {
	tc, _ := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	runner := &failingEngine{}
	deps := testDeps(runner)
	sink := &BufferSink{}

	out := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, deps, Options{}, nil).Run(t.Context())

	assert.Equal(t, FailureInvocation, out.Failure)
	assert.Equal(t, "Running LaTeX compiler...\nUnable to compile pdf: exec format error\n", sink.String())
}

func TestPipeline_UnknownProgram(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", "% !TeX program = context\n"+minimalDocument)
	sink := &BufferSink{}
	p := NewPipeline(filepath.Join(tc.dir, "paper.tex"), sink, testDeps(runner), Options{}, nil)

	out := p.Run(t.Context())

	assert.Equal(t, FailureResolution, out.Failure)
	assert.Contains(t, sink.String(), "context")
	assert.Equal(t, 0, runner.Calls())
	assert.Equal(t, []State{StateInit, StateResolvingProgram, StateDone}, p.Trail())
}

func TestPipeline_LiterateDocumentMapsErrorsToSource(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.Rnw", "\\documentclass{article}\n<<>>=\n1+1\n@\n")
	tc.weave = func(cmd process.Command) process.Result {
		assert.Equal(t, []string{"CMD", "Sweave", "paper.Rnw"}, cmd.Args)
		tc.write("paper.tex", minimalDocument)
		tc.write("paper-concordance.tex", "\\Sconcordance{concordance:paper.tex:paper.Rnw:1 6 1 5 0}\n")
		return process.Result{}
	}
	tc.engine = func(process.Command) process.Result {
		tc.write("paper.log", "(./paper.tex\n./paper.tex:12: Undefined control sequence\n(./chapter.tex\n./chapter.tex:3: Missing $ inserted\n))\n")
		return process.Result{ExitStatus: 1}
	}
	sink := &BufferSink{}
	p := NewPipeline(filepath.Join(tc.dir, "paper.Rnw"), sink, testDeps(runner), Options{}, nil)

	out := p.Run(t.Context())

	assert.False(t, out.Succeeded)
	assert.Contains(t, sink.String(), "paper.Rnw (line 7): Undefined control sequence\n")
	assert.Contains(t, sink.String(), "chapter.tex (line 3): Missing $ inserted\n")
	assert.Equal(t,
		[]State{StateInit, StateResolvingProgram, StateWeaving, StateCompiling, StateReporting, StateDone},
		p.Trail())
}

func TestPipeline_WeaveFailureStopsBeforeEngine(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.Rnw", "\\documentclass{article}\n")
	tc.weave = func(process.Command) process.Result {
		return process.Result{ExitStatus: 1, Stderr: "Error in parse"}
	}
	sink := &BufferSink{}

	out := NewPipeline(filepath.Join(tc.dir, "paper.Rnw"), sink, testDeps(runner), Options{}, nil).Run(t.Context())

	assert.Equal(t, FailureWeave, out.Failure)
	assert.Equal(t, "Error running Sweave (exit code 1)\nError in parse\n", sink.String())
	assert.Empty(t, enginePrograms(runner))
}

func TestPipeline_RunsOnce(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	p := NewPipeline(filepath.Join(tc.dir, "paper.tex"), &BufferSink{}, testDeps(runner), Options{}, nil)

	first := p.Run(t.Context())
	require.True(t, first.Succeeded)
	calls := runner.Calls()

	second := p.Run(t.Context())
	assert.False(t, second.Succeeded)
	assert.Error(t, second.Err)
	assert.Equal(t, calls, runner.Calls())
	assert.Equal(t,
		[]State{StateInit, StateResolvingProgram, StateCompiling, StateReporting, StateDone},
		p.Trail())
}

func TestPipeline_Start(t *testing.T) {
	tc, runner := newToolchain(t)
	tc.write("paper.tex", minimalDocument)
	p := NewPipeline(filepath.Join(tc.dir, "paper.tex"), &BufferSink{}, testDeps(runner), Options{}, nil).WithRunID("run-1")

	out, ok := <-p.Start(t.Context())
	require.True(t, ok)
	assert.True(t, out.Succeeded)
	assert.Equal(t, "run-1", out.RunID)
}

func TestPipeline_RefusesIllegalTransitions(t *testing.T) {
	p := NewPipeline("paper.tex", &BufferSink{}, Dependencies{}, Options{}, nil)

	assert.False(t, p.transition(StateReporting))
	assert.True(t, p.transition(StateResolvingProgram))
	assert.False(t, p.transition(StateResolvingProgram))
	assert.True(t, p.transition(StateCompiling))
	assert.False(t, p.transition(StateWeaving))
	assert.Equal(t, StateCompiling, p.State())
	assert.Equal(t, []State{StateInit, StateResolvingProgram, StateCompiling}, p.Trail())
}

// failingEngine answers version probes and fails to start anything else.
type failingEngine struct{}

func (failingEngine) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
		return process.Result{}, nil
	}
	return process.Result{}, errors.New("exec format error")
}
