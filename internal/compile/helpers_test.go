package compile

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/events"
	"git.home.luguber.info/inful/texbuild/internal/history"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/process/processtest"
	"git.home.luguber.info/inful/texbuild/internal/tex"
	"git.home.luguber.info/inful/texbuild/internal/weave"
)

const testTexBin = "/texbin/"

func installedLookup(name string) (string, error) {
	return testTexBin + name, nil
}

// toolchain scripts the external programs a pipeline runs.
type toolchain struct {
	t   *testing.T
	dir string

	// engine runs for every engine pass after "--version" probes are answered.
	engine func(cmd process.Command) process.Result
	// weave runs for R and Rscript.
	weave func(cmd process.Command) process.Result
}

func (tc *toolchain) handle(cmd process.Command) (process.Result, error) {
	if slices.Equal(cmd.Args, []string{"--version"}) {
		return process.Result{Stdout: "pdfTeX 3.141592653-2.6-1.40.25 (TeX Live 2023)\n"}, nil
	}
	switch filepath.Base(cmd.Program) {
	case "R", "Rscript":
		if tc.weave == nil {
			return process.Result{}, nil
		}
		return tc.weave(cmd), nil
	default:
		if tc.engine == nil {
			return process.Result{}, nil
		}
		return tc.engine(cmd), nil
	}
}

func (tc *toolchain) write(name, content string) {
	tc.t.Helper()
	require.NoError(tc.t, os.WriteFile(filepath.Join(tc.dir, name), []byte(content), 0o600))
}

func (tc *toolchain) exists(name string) bool {
	_, err := os.Stat(filepath.Join(tc.dir, name))
	return err == nil
}

func newToolchain(t *testing.T) (*toolchain, *processtest.FakeRunner) {
	t.Helper()
	tc := &toolchain{t: t, dir: t.TempDir()}
	return tc, &processtest.FakeRunner{Handler: tc.handle}
}

func testDeps(runner process.Runner) Dependencies {
	return Dependencies{
		Runner:   runner,
		Resolver: tex.NewProgramResolver("", installedLookup),
		Weaver:   weave.NewRWeaver(runner, weave.Settings{}),
		Compiler: tex.NewPdfLatex(runner, "bibtex", 1),
	}
}

// enginePrograms filters recorded commands down to engine passes.
func enginePrograms(runner *processtest.FakeRunner) []string {
	var out []string
	for _, c := range runner.Commands() {
		if !slices.Equal(c.Args, []string{"--version"}) && filepath.Dir(c.Program) == filepath.Clean(testTexBin) {
			out = append(out, c.Program)
		}
	}
	return out
}

// nonProbePrograms lists every recorded program except version probes.
func nonProbePrograms(runner *processtest.FakeRunner) []string {
	var out []string
	for _, c := range runner.Commands() {
		if !slices.Equal(c.Args, []string{"--version"}) {
			out = append(out, c.Program)
		}
	}
	return out
}

type fakeViewer struct {
	mu    sync.Mutex
	paths []string
}

func (v *fakeViewer) View(_ context.Context, pdfPath string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paths = append(v.paths, pdfPath)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.PDFPublished
}

func (p *fakePublisher) PublishPDF(_ context.Context, e events.PDFPublished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type memoryHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (m *memoryHistory) Append(_ context.Context, rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryHistory) Recent(context.Context, int) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Record(nil), m.records...), nil
}

func (m *memoryHistory) Close() error { return nil }
