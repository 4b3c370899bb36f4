// Package errors provides the classified error primitives used across texbuild.
//
// A ClassifiedError carries a category (what part of the compile flow failed), a
// severity, a human-readable message and optional structured context. Errors are
// built through a small fluent builder:
//
//	err := errors.NewError(errors.CategoryCompile, "pdflatex exited with status 1").
//		WithContext("program", programPath).
//		WithCause(runErr).
//		Build()
//
// CLIErrorAdapter turns any error into an exit code and a single line suitable
// for the terminal.
package errors
