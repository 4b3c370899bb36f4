// Package weave expands literate R documents (Sweave or knitr) into plain .tex
// before they are compiled.
package weave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/concordance"
	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/magic"
	"git.home.luguber.info/inful/texbuild/internal/process"
	"git.home.luguber.info/inful/texbuild/internal/tex"
)

// Method is a weave implementation.
type Method string

const (
	Sweave Method = "sweave"
	Knitr  Method = "knitr"
)

// ConcordanceSuffix is appended to the document stem to name the concordance
// file a weave writes.
const ConcordanceSuffix = "-concordance.tex"

// DisplayName is the name users know the method by.
func (m Method) DisplayName() string {
	switch m {
	case Sweave:
		return "Sweave"
	case Knitr:
		return "knitr"
	default:
		return string(m)
	}
}

// ParseMethod matches s against the known methods, ignoring case.
func ParseMethod(s string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case Sweave:
		return Sweave, true
	case Knitr:
		return Knitr, true
	default:
		return "", false
	}
}

// Result is the outcome of one weave.
type Result struct {
	Succeeded    bool
	ErrorMessage string
	Concordance  concordance.Concordance
}

// Weaver turns a literate document into its .tex counterpart.
type Weaver interface {
	Weave(ctx context.Context, doc tex.TargetDocument, comments magic.MagicComments) Result
}

// Settings configures an RWeaver.
type Settings struct {
	DefaultMethod Method
	RBinary       string
	RscriptBinary string
}

// RWeaver runs R to weave documents.
type RWeaver struct {
	runner   process.Runner
	settings Settings
}

// NewRWeaver returns a Weaver that invokes R through runner.
func NewRWeaver(runner process.Runner, settings Settings) *RWeaver {
	if settings.DefaultMethod == "" {
		settings.DefaultMethod = Sweave
	}
	if settings.RBinary == "" {
		settings.RBinary = "R"
	}
	if settings.RscriptBinary == "" {
		settings.RscriptBinary = "Rscript"
	}
	return &RWeaver{runner: runner, settings: settings}
}

// Weave implements Weaver. The method comes from a "% !Rnw weave" directive
// when present, otherwise from the configured default.
func (w *RWeaver) Weave(ctx context.Context, doc tex.TargetDocument, comments magic.MagicComments) Result {
	method := w.settings.DefaultMethod
	if name, ok := comments.Lookup(magic.ScopeRnw, magic.VarWeave); ok {
		m, known := ParseMethod(name)
		if !known {
			return failure(fmt.Sprintf("Unknown Rnw weave method '%s' specified (valid values are knitr, Sweave)", name))
		}
		method = m
	}

	cmd := w.command(method, doc)
	slog.Info("Weaving document", logfields.Target(doc.Path()), slog.String("method", string(method)))
	res, err := w.runner.Run(ctx, cmd)
	if err != nil {
		return failure(fmt.Sprintf("Unable to run %s: %v", method.DisplayName(), err))
	}
	if !res.Succeeded() {
		msg := fmt.Sprintf("Error running %s (exit code %d)", method.DisplayName(), res.ExitStatus)
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			msg += "\n" + stderr
		}
		return failure(msg)
	}

	conc, err := concordance.ReadFile(doc.AncillaryPath(ConcordanceSuffix))
	if err != nil {
		slog.Warn("Ignoring unreadable concordance", logfields.Target(doc.Path()), logfields.Error(err))
		conc = concordance.Concordance{}
	}
	return Result{Succeeded: true, Concordance: conc}
}

func (w *RWeaver) command(method Method, doc tex.TargetDocument) process.Command {
	file := doc.Filename()
	if method == Knitr {
		return process.Command{
			Program: w.settings.RscriptBinary,
			Args:    []string{"-e", fmt.Sprintf("library(knitr); knit('%s')", rString(file))},
			Dir:     doc.Dir(),
		}
	}
	return process.Command{
		Program: w.settings.RBinary,
		Args:    []string{"CMD", "Sweave", file},
		Dir:     doc.Dir(),
	}
}

func rString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func failure(msg string) Result {
	return Result{ErrorMessage: msg}
}
