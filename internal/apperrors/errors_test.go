package apperrors

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidationWrapsSentinel(t *testing.T) {
	err := Validation("rating %d out of range", 7)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "rating 7 out of range") {
		t.Fatalf("message lost: %q", err.Error())
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("todo", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `todo "abc"`) {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestStorageKeepsCause(t *testing.T) {
	err := Storage("create session", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrStorage) {
		t.Fatal("expected ErrStorage in chain")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected original cause in chain")
	}
}
