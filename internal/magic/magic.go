// Package magic reads the "% !TeX program = xelatex" style directives that
// editors honor at the top of TeX and literate R documents.
package magic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// MaxLines is the number of leading lines examined for directives.
const MaxLines = 20

// Scope names the tool a directive addresses.
type Scope string

const (
	ScopeTeX    Scope = "TeX"
	ScopeRnw    Scope = "Rnw"
	ScopeBibTeX Scope = "BibTeX"
)

// Well-known variable names.
const (
	VarProgram = "program"
	VarWeave   = "weave"

	aliasTSProgram = "ts-program"
)

var directiveRe = regexp.MustCompile(`^%+\s*!\s*(\w+)\s+([\w-]+)\s*=\s*(.*?)\s*$`)

// MagicComment is one parsed directive.
type MagicComment struct {
	Scope    Scope
	Variable string
	Value    string
}

// MagicComments keeps directives in document order.
type MagicComments []MagicComment

// Lookup returns the value of the first directive matching scope and
// variable. Both comparisons ignore case.
func (mc MagicComments) Lookup(scope Scope, variable string) (string, bool) {
	for _, c := range mc {
		if strings.EqualFold(string(c.Scope), string(scope)) && strings.EqualFold(c.Variable, variable) {
			return c.Value, true
		}
	}
	return "", false
}

// ParseFile reads directives from the document at path.
func ParseFile(path string) (MagicComments, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the document being compiled
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	mc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse magic comments in %s: %w", path, err)
	}
	return mc, nil
}

// Parse scans the leading comment block of r. Scanning stops at the first line
// that is neither blank nor a comment, or after MaxLines lines.
func Parse(r io.Reader) (MagicComments, error) {
	var out MagicComments
	sc := bufio.NewScanner(r)
	for n := 0; n < MaxLines && sc.Scan(); n++ {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "%") {
			break
		}
		m := directiveRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		scope, ok := parseScope(m[1])
		if !ok {
			continue
		}
		variable := strings.ToLower(m[2])
		if variable == aliasTSProgram {
			variable = VarProgram
		}
		out = append(out, MagicComment{Scope: scope, Variable: variable, Value: m[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseScope(s string) (Scope, bool) {
	for _, scope := range []Scope{ScopeTeX, ScopeRnw, ScopeBibTeX} {
		if strings.EqualFold(s, string(scope)) {
			return scope, true
		}
	}
	return "", false
}
