package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEngineErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same kind and code",
			err:    NewVersionStateError(ErrCodeVersionInUse, "in use"),
			target: &EngineError{Kind: KindVersionState, Code: ErrCodeVersionInUse},
			want:   true,
		},
		{
			name:   "kind only target",
			err:    NewVersionStateError(ErrCodeInvalidTransition, "bad"),
			target: &EngineError{Kind: KindVersionState},
			want:   true,
		},
		{
			name:   "different code",
			err:    NewVersionStateError(ErrCodeInvalidTransition, "bad"),
			target: &EngineError{Kind: KindVersionState, Code: ErrCodeVersionInUse},
			want:   false,
		},
		{
			name:   "wrapped remote not found",
			err:    fmt.Errorf("get: %w", ErrRemoteNotFound),
			target: ErrRemoteNotFound,
			want:   true,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			target: ErrRemoteNotFound,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAdapterError("failed to put document", cause).
		WithResource("/agentcore/config").
		WithOperation("push")

	msg := err.Error()
	for _, want := range []string{"[adapter]", "failed to put document", "resource=/agentcore/config", "operation=push", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestHelpers(t *testing.T) {
	busy := NewLocalStoreBusyError("/tmp/config.yaml", nil)
	if !IsLocalStoreBusy(busy) {
		t.Error("IsLocalStoreBusy() = false")
	}
	if IsValidation(busy) {
		t.Error("IsValidation() = true for busy error")
	}
	if !IsNotFound(fmt.Errorf("wrapped: %w", ErrRemoteNotFound)) {
		t.Error("IsNotFound() = false for wrapped ErrRemoteNotFound")
	}

	v := NewValidationError("invalid", []Violation{
		{Code: ErrCodeDuplicateName, Path: "environments.dev", Message: "duplicate", Severity: SeverityError},
		{Code: ErrCodeRegionMismatch, Path: "environments.dev.agent_runtimes.bot", Message: "region", Severity: SeverityError},
	})
	if v.Code != ErrCodeDuplicateName {
		t.Errorf("Code = %q, want first violation code", v.Code)
	}
	if !HasCode(v, ErrCodeRegionMismatch) {
		t.Error("HasCode() = false for second violation")
	}
	if HasCode(v, ErrCodeVersionInUse) {
		t.Error("HasCode() = true for absent code")
	}
}
