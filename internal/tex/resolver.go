package tex

import (
	"fmt"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/magic"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

// Supported engine names, sorted.
var Programs = []string{"lualatex", "pdflatex", "xelatex"}

// DefaultProgram is used when neither a directive nor configuration names one.
const DefaultProgram = "pdflatex"

// ProgramResolver picks the engine for a document.
type ProgramResolver struct {
	defaultProgram string
	lookup         process.LookupFunc
}

// NewProgramResolver returns a resolver that falls back to defaultProgram and
// finds executables with lookup.
func NewProgramResolver(defaultProgram string, lookup process.LookupFunc) *ProgramResolver {
	if defaultProgram == "" {
		defaultProgram = DefaultProgram
	}
	if lookup == nil {
		lookup = process.SearchPath()
	}
	return &ProgramResolver{defaultProgram: defaultProgram, lookup: lookup}
}

// IsSupported reports whether name is a known engine, ignoring case.
func IsSupported(name string) bool {
	return slices.Contains(Programs, strings.ToLower(name))
}

// Resolve returns the absolute path of the engine selected by a
// "% !TeX program" directive, or of the default engine. The returned error is a
// classified config error whose message is meant for the user.
func (r *ProgramResolver) Resolve(mc magic.MagicComments) (string, error) {
	if name, ok := mc.Lookup(magic.ScopeTeX, magic.VarProgram); ok {
		if !IsSupported(name) {
			return "", ferrors.ConfigError(fmt.Sprintf(
				"Unknown LaTeX program type '%s' specified (valid types are %s)",
				name, strings.Join(Programs, ", "))).
				WithCause(ErrUnknownProgram).
				WithContext("program", name).
				Build()
		}
		path, err := r.lookup(strings.ToLower(name))
		if err != nil {
			return "", ferrors.ConfigError(fmt.Sprintf("Unable to find specified LaTeX program '%s'", name)).
				WithCause(fmt.Errorf("%w: %w", ErrProgramNotFound, err)).
				WithContext("program", name).
				Build()
		}
		return path, nil
	}

	path, err := r.lookup(r.defaultProgram)
	if err != nil {
		return "", ferrors.ConfigError(fmt.Sprintf(
			"No LaTeX installation detected. Please install a TeX distribution and ensure %s is on the PATH",
			r.defaultProgram)).
			WithCause(fmt.Errorf("%w: %w", ErrNoInstallation, err)).
			WithContext("program", r.defaultProgram).
			Build()
	}
	return path, nil
}
