// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{"operation only", &ActionableError{Operation: "load project"}, "failed to load project"},
		{"with resource", &ActionableError{Operation: "load project", Resource: "./project.cue"}, "failed to load project: ./project.cue"},
		{"with cause", &ActionableError{Operation: "run target", Cause: errors.New("exit status 2")}, "failed to run target: exit status 2"},
		{
			"full context",
			&ActionableError{Operation: "resolve target", Resource: "core.comple", Cause: errors.New("no such command")},
			"failed to resolve target: core.comple: no such command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("library missing")
	err := fmt.Errorf("wrapped: %w", WrapWithContext(sentinel, "resolve library", "lib/junit.jar"))

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should see through ActionableError")
	}
	ae, ok := Actionable(err)
	if !ok {
		t.Fatal("Actionable() should find the ActionableError")
	}
	if ae.Resource != "lib/junit.jar" {
		t.Errorf("Resource = %q", ae.Resource)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	err := &ActionableError{
		Operation:   "clean module",
		Resource:    "core",
		Suggestions: []string{"Check directory permissions", "Re-run with --verbose"},
		Cause:       fmt.Errorf("remove build/classes: %w", inner),
	}

	short := err.Format(false)
	if !strings.Contains(short, "  • Check directory permissions") {
		t.Errorf("Format(false) should list suggestions, got %q", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	long := err.Format(true)
	if !strings.Contains(long, "1. remove build/classes: permission denied") || !strings.Contains(long, "2. permission denied") {
		t.Errorf("Format(true) should number the error chain, got %q", long)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without an operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without an operation = %v, want nil", err)
	}

	cause := errors.New("cycle")
	ae := NewErrorContext().
		WithOperation("plan build").
		WithResource("core").
		WithSuggestion("a").
		WithSuggestions("b", "c").
		WithIssue(DependencyCycleId).
		Wrap(cause).
		Build()

	if ae.Operation != "plan build" || ae.Resource != "core" {
		t.Errorf("unexpected context: %+v", ae)
	}
	if len(ae.Suggestions) != 3 {
		t.Errorf("Suggestions = %v, want 3 entries", ae.Suggestions)
	}
	if !errors.Is(ae, cause) {
		t.Error("Build() should keep the cause")
	}
	if entry := ae.CatalogEntry(); entry == nil || entry.Id() != DependencyCycleId {
		t.Errorf("CatalogEntry() = %v, want the dependency cycle issue", entry)
	}
}

func TestWrapHelpers_NilError(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "op") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	if (&ActionableError{Operation: "x"}).CatalogEntry() != nil {
		t.Error("CatalogEntry() without an issue should be nil")
	}
}
