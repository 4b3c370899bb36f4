package tex

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

const (
	bibtexProgram = "bibtex"

	// DefaultMaxPasses is the engine run limit when none is configured.
	DefaultMaxPasses = 3
)

// rerunMarkers are log phrases with which LaTeX and common packages ask for
// another pass.
var rerunMarkers = []string{"Rerun to get", "Rerun LaTeX", "Please rerun"}

// PdfLatex runs the engine directly and repeats what texi2dvi would do: one
// bibtex run when the document has a bibliography, then further engine passes
// while the log asks for them.
type PdfLatex struct {
	runner    process.Runner
	bibtex    string
	maxPasses int
}

// NewPdfLatex returns the direct strategy. bibtex is the bibtex executable.
func NewPdfLatex(runner process.Runner, bibtex string, maxPasses int) *PdfLatex {
	if maxPasses < 1 {
		maxPasses = DefaultMaxPasses
	}
	if bibtex == "" {
		bibtex = bibtexProgram
	}
	return &PdfLatex{runner: runner, bibtex: bibtex, maxPasses: maxPasses}
}

// Name implements Compiler.
func (p *PdfLatex) Name() string { return "direct" }

// Compile implements Compiler.
func (p *PdfLatex) Compile(ctx context.Context, program, texPath string, opts CompileOptions) (process.Result, error) {
	dir := filepath.Dir(texPath)
	file := filepath.Base(texPath)
	base := strings.TrimSuffix(texPath, filepath.Ext(texPath))
	engine := process.Command{
		Program: program,
		Args:    append(opts.Flags(), file),
		Dir:     dir,
	}

	res, err := p.runner.Run(ctx, engine)
	res.Program = program
	if err != nil || !res.Succeeded() {
		return res, err
	}
	passes := 1

	rerun := false
	if hasBibData(base + ".aux") {
		slog.Debug("Running bibtex", logfields.Path(base+".aux"))
		bres, err := p.runner.Run(ctx, process.Command{
			Program: p.bibtex,
			Args:    []string{filepath.Base(base)},
			Dir:     dir,
		})
		if err != nil || !bres.Succeeded() {
			bres.Program = p.bibtex
			return bres, err
		}
		rerun = true
	}

	for passes < p.maxPasses && (rerun || logRequestsRerun(base+".log")) {
		res, err = p.runner.Run(ctx, engine)
		res.Program = program
		passes++
		if err != nil || !res.Succeeded() {
			return res, err
		}
		rerun = false
	}
	slog.Debug("Engine passes finished", logfields.Program(program), slog.Int("passes", passes))
	return res, nil
}

func hasBibData(auxPath string) bool {
	data, err := os.ReadFile(auxPath) // #nosec G304 -- sibling of the compiled document
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read aux file", logfields.Path(auxPath), logfields.Error(err))
		}
		return false
	}
	return strings.Contains(string(data), `\bibdata`)
}

func logRequestsRerun(logPath string) bool {
	data, err := os.ReadFile(logPath) // #nosec G304 -- sibling of the compiled document
	if err != nil {
		return false
	}
	text := string(data)
	for _, m := range rerunMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
