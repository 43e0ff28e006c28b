package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"not found", NotFound("job not found"), CodeNotFound},
		{"forbidden", Forbidden("not authorized"), CodeForbidden},
		{"conflict", Conflict("already applied", errors.New("duplicate key")), CodeConflict},
		{"validation", Validation("bad salary"), CodeValidation},
		{"wrapped", fmt.Errorf("apply: %w", Conflict("already applied", nil)), CodeConflict},
		{"plain", errors.New("connection refused"), CodeInternal},
	}

	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestMessageOfHidesInternalDetails(t *testing.T) {
	t.Parallel()

	if got := MessageOf(Internal("query jobs", errors.New("dial tcp: refused"))); got != "internal error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := MessageOf(errors.New("boom")); got != "internal error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := MessageOf(Forbidden("not authorized")); got != "not authorized" {
		t.Fatalf("expected forbidden message, got %q", got)
	}
}

func TestNewCapturesStack(t *testing.T) {
	t.Parallel()

	err := Validation("message is required")
	if len(err.Stack) == 0 {
		t.Fatal("expected stack to be captured")
	}
	cause := errors.New("duplicate key")
	wrapped := Conflict("already saved", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected Conflict to unwrap to its cause")
	}
}
