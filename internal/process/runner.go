// Package process runs external programs and captures their output.
//
// All interaction with the TeX toolchain, R and viewer programs goes through the
// Runner interface so that pipelines can be exercised in tests without any of
// those programs installed.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

// ErrEmptyCommand is returned when a Command has no program.
var ErrEmptyCommand = errors.New("command has no program")

// Command describes one external program invocation.
type Command struct {
	Program string
	Args    []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env holds KEY=VALUE pairs appended to the parent environment.
	Env []string
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Result is the uniform outcome of a finished process.
type Result struct {
	// Program is the executable that produced the result.
	Program    string
	ExitStatus int
	Stdout     string
	Stderr     string
}

// Output returns stderr, or stdout when nothing was written to stderr. Tools
// such as bibtex report their errors on stdout.
func (r Result) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Succeeded reports a zero exit status.
func (r Result) Succeeded() bool {
	return r.ExitStatus == 0
}

// Runner executes a Command to completion.
//
// A non-zero exit status is not an error: it is reported through Result. Errors
// are reserved for failures to start or wait on the process.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Program == "" {
		return Result{}, ErrEmptyCommand
	}

	// #nosec G204 -- program paths come from the resolver or configuration, not document content
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running external program", logfields.Program(c.Program), slog.String("command", c.String()), logfields.Path(c.Dir))
	err := cmd.Run()

	res := Result{Program: c.Program, Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitCode()
			slog.Debug("External program exited with failure", logfields.Program(c.Program), logfields.ExitStatus(res.ExitStatus))
			return res, nil
		}
		return res, fmt.Errorf("run %s: %w", c.Program, err)
	}
	return res, nil
}
