package tex

import "errors"

var (
	// ErrUnknownProgram indicates a program directive naming an unsupported engine.
	ErrUnknownProgram = errors.New("unknown latex program")
	// ErrProgramNotFound indicates a requested engine is not installed.
	ErrProgramNotFound = errors.New("latex program not found")
	// ErrNoInstallation indicates the default engine is not installed.
	ErrNoInstallation = errors.New("no latex installation")
	// ErrProbeFailed indicates the version probe did not produce output.
	ErrProbeFailed = errors.New("latex version probe failed")
)
