package process

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_EmptyCommand(t *testing.T) {
	_, err := NewExecRunner().Run(t.Context(), Command{})
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecRunner_CapturesOutputAndExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := SearchPath()("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	res, err := NewExecRunner().Run(t.Context(), Command{
		Program: sh,
		Args:    []string{"-c", "echo out; echo err 1>&2; exit 3"},
		Env:     []string{"TEXBUILD_TEST=1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.False(t, res.Succeeded())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, sh, res.Program)
}

func TestExecRunner_MissingProgram(t *testing.T) {
	_, err := NewExecRunner().Run(t.Context(), Command{Program: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestSearchPath_PrefersConfiguredDirectories(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit semantics differ")
	}
	dir := t.TempDir()
	prog := filepath.Join(dir, "xelatex")
	require.NoError(t, os.WriteFile(prog, []byte("#!/bin/sh\n"), 0o755))

	got, err := SearchPath("", dir)("xelatex")
	require.NoError(t, err)
	assert.Equal(t, prog, got)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "pdflatex", Command{Program: "pdflatex"}.String())
	assert.Equal(t, "pdflatex -interaction=batchmode paper.tex",
		Command{Program: "pdflatex", Args: []string{"-interaction=batchmode", "paper.tex"}}.String())
}

func TestResult_Output(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{name: "stderr wins", res: Result{Stdout: "ignored\n", Stderr: " fatal \n"}, want: "fatal"},
		{name: "stdout when stderr is blank", res: Result{Stdout: "I found no \\citation commands\n", Stderr: "\n"}, want: "I found no \\citation commands"},
		{name: "empty", res: Result{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Output())
		})
	}
}
