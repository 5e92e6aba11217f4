package model

import "testing"

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrUnauthorized, Message: "missing bearer token"}
	want := "UNAUTHORIZED: missing bearer token"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("bad group_id")
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if err.Message != "bad group_id" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Entity: "Session",
		ID:     "c0ffee",
		From:   "VERIFIED",
		To:     "EXPIRED",
	}
	want := "invalid Session state transition: VERIFIED → EXPIRED (entity c0ffee)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
