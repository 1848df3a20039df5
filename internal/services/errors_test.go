package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrTransient, "lms", "mark attendance", "", cause)

	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved: %v", err)
	}
	if got := err.Error(); got != "transient failure: lms: mark attendance: connection reset" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to transient: %v", err)
	}
	if got := err.Error(); got != "transient failure: service failure" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrValidation, "lms", "login", "email already registered", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation marker: %v", err)
	}
	if got := err.Error(); got != "validation error: lms: login: email already registered" {
		t.Fatalf("unexpected message: %q", got)
	}
}
