package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "texbuild.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "texbuild.yaml" {
			t.Errorf("expected context file=texbuild.yaml, got %v", file)
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := ValidationError("bad name").Build()
		wrapped := fmt.Errorf("start pipeline: %w", inner)

		if !IsClassified(wrapped) {
			t.Fatal("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryValidation) {
			t.Error("expected validation category")
		}
		if GetSeverity(wrapped) != SeverityFatal {
			t.Errorf("expected fatal severity, got %s", GetSeverity(wrapped))
		}
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		plain := errors.New("boom")
		if GetCategory(plain) != CategoryInternal {
			t.Errorf("expected internal category, got %s", GetCategory(plain))
		}
		if GetSeverity(plain) != SeverityError {
			t.Errorf("expected error severity, got %s", GetSeverity(plain))
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	original := errors.New("exec: \"pdflatex\": executable file not found")
	err := WrapError(original, CategoryProcess, "spawn failed").
		Warning().
		WithContext("program", "pdflatex").
		Build()

	if !errors.Is(err, original) {
		t.Error("expected error to wrap original error")
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("expected warning severity, got %s", err.Severity())
	}
	if got := err.Error(); got != "[process:warning] spawn failed: exec: \"pdflatex\": executable file not found" {
		t.Errorf("unexpected Error(): %s", got)
	}

	copied := err.WithContext("attempt", 2)
	if _, ok := err.Context().Get("attempt"); ok {
		t.Error("WithContext must not mutate the receiver")
	}
	if v, _ := copied.Context().Get("attempt"); v != 2 {
		t.Errorf("expected attempt=2 on copy, got %v", v)
	}
}

func TestClassifiedErrorIs(t *testing.T) {
	a := CompileError("failed").Build()
	b := CompileError("failed").Build()
	c := WeaveError("failed").Build()

	if !errors.Is(a, b) {
		t.Error("expected same category and message to match")
	}
	if errors.Is(a, c) {
		t.Error("expected different categories not to match")
	}
}

func TestUserFacing(t *testing.T) {
	cases := map[ErrorCategory]bool{
		CategoryValidation: true,
		CategoryConfig:     true,
		CategoryWeave:      true,
		CategoryCompile:    true,
		CategoryHistory:    false,
		CategoryInternal:   false,
	}
	for category, want := range cases {
		if got := NewError(category, "x").Build().UserFacing(); got != want {
			t.Errorf("%s: UserFacing() = %v, want %v", category, got, want)
		}
	}
}
