package tex

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/process"
)

// CompileOptions are the engine flags for one compile.
type CompileOptions struct {
	FileLineError bool
	SyncTex       bool
	ShellEscape   bool
	// VersionInfo is the first line of "<program> --version"; empty when the
	// probe failed.
	VersionInfo string
}

// NewCompileOptions returns the options every compile uses. File-line-error
// output and SyncTeX are always on.
func NewCompileOptions(shellEscape bool) CompileOptions {
	return CompileOptions{FileLineError: true, SyncTex: true, ShellEscape: shellEscape}
}

// Flags returns the engine command-line flags for o.
func (o CompileOptions) Flags() []string {
	flags := []string{"-interaction=batchmode"}
	if o.FileLineError {
		flags = append(flags, "-file-line-error")
	}
	if o.SyncTex {
		flags = append(flags, "-synctex=-1")
	}
	if o.ShellEscape {
		flags = append(flags, "-shell-escape")
	}
	return flags
}

// ProbeVersion runs "<program> --version" and returns the first line of its
// output. Failure is not fatal for a compile; callers log it and continue.
func ProbeVersion(ctx context.Context, runner process.Runner, program string) (string, error) {
	res, err := runner.Run(ctx, process.Command{Program: program, Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if !res.Succeeded() {
		return "", fmt.Errorf("%w: exit code %d: %s", ErrProbeFailed, res.ExitStatus, strings.TrimSpace(res.Stderr))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return strings.TrimSpace(line), nil
}
