package tex

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

// Compiler turns a .tex file into a PDF.
//
// Compile runs in the directory of texPath. A non-zero exit status is reported
// through the Result, whose Program names the tool that failed; the error is
// reserved for failures to run the tools.
type Compiler interface {
	Name() string
	Compile(ctx context.Context, program, texPath string, opts CompileOptions) (process.Result, error)
}

// CompilerSettings selects and tunes the strategy built by NewCompiler.
type CompilerSettings struct {
	UseTexi2Dvi bool
	// MaxPasses bounds engine runs in the direct strategy.
	MaxPasses int
}

const texi2dviProgram = "texi2dvi"

// NewCompiler returns the texi2dvi wrapper when requested and installed, and the
// direct engine strategy otherwise.
func NewCompiler(settings CompilerSettings, runner process.Runner, lookup process.LookupFunc) Compiler {
	if lookup == nil {
		lookup = process.SearchPath()
	}
	if settings.UseTexi2Dvi {
		path, err := lookup(texi2dviProgram)
		if err == nil {
			return NewTexi2Dvi(runner, path)
		}
		slog.Warn("texi2dvi requested but not available, compiling directly", logfields.Error(err))
	}
	bibtex, err := lookup(bibtexProgram)
	if err != nil {
		bibtex = bibtexProgram
	}
	return NewPdfLatex(runner, bibtex, settings.MaxPasses)
}
