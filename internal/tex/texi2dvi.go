package tex

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/process"
)

// Texi2Dvi delegates pass handling to the texi2dvi script. With --pdf the script
// runs whatever PDFLATEX names, so every engine and its flags go through that
// variable.
type Texi2Dvi struct {
	runner process.Runner
	path   string
}

// NewTexi2Dvi returns the wrapper strategy using the texi2dvi script at path.
func NewTexi2Dvi(runner process.Runner, path string) *Texi2Dvi {
	return &Texi2Dvi{runner: runner, path: path}
}

// Name implements Compiler.
func (t *Texi2Dvi) Name() string { return "texi2dvi" }

// Compile implements Compiler.
func (t *Texi2Dvi) Compile(ctx context.Context, program, texPath string, opts CompileOptions) (process.Result, error) {
	return t.runner.Run(ctx, process.Command{
		Program: t.path,
		Args:    []string{"--pdf", "--batch", "--quiet", filepath.Base(texPath)},
		Dir:     filepath.Dir(texPath),
		Env:     []string{texi2dviEngineVar + "=" + engineCommand(program, opts)},
	})
}

const texi2dviEngineVar = "PDFLATEX"

func engineCommand(program string, opts CompileOptions) string {
	parts := []string{program}
	// texi2dvi --batch already selects batch mode.
	for _, f := range opts.Flags() {
		if f != "-interaction=batchmode" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
