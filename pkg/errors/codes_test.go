package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestVigilError_Error(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "Startup", "invalid config file", nil)
	expected := "[1001] Startup: invalid config file"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	cause := errors.New("file not found")
	errWithCause := New(ErrCodeConfigInvalid, "Startup", "invalid config file", cause)
	expectedWithCause := "[1001] Startup: invalid config file (cause: file not found)"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected %q, got %q", expectedWithCause, errWithCause.Error())
	}
}

func TestVigilError_Unwrap(t *testing.T) {
	cause := errors.New("file not found")
	err := New(ErrCodeConfigInvalid, "Startup", "invalid config file", cause)

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Expected cause %v, got %v", cause, unwrapped)
	}

	errNoCause := New(ErrCodeConfigInvalid, "Startup", "invalid config file", nil)
	if errors.Unwrap(errNoCause) != nil {
		t.Errorf("Expected nil cause, got %v", errors.Unwrap(errNoCause))
	}
}

func TestVigilError_Fields(t *testing.T) {
	err := New(ErrCodeSpawnFailed, "Launch", "exec failed", nil).(*VigilError)
	if err.Code != ErrCodeSpawnFailed {
		t.Errorf("Expected code %v, got %v", ErrCodeSpawnFailed, err.Code)
	}
	if err.Operation != "Launch" {
		t.Errorf("Expected operation %q, got %q", "Launch", err.Operation)
	}
	if err.Msg != "exec failed" {
		t.Errorf("Expected message %q, got %q", "exec failed", err.Msg)
	}
}

func TestVigilError_IsMatchesByCode(t *testing.T) {
	err := New(ErrCodeStopPartialTimeout, "StopByName", "2 processes still alive", nil)
	wrapped := fmt.Errorf("tick: %w", err)

	if !errors.Is(wrapped, ErrPartialTimeout) {
		t.Error("Expected wrapped error to match ErrPartialTimeout")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Error("Did not expect a match against ErrNotFound")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrCodeNoSuchProcess, "StopByID", "gone", nil)); got != ErrCodeNoSuchProcess {
		t.Errorf("Expected %v, got %v", ErrCodeNoSuchProcess, got)
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeUnknown {
		t.Errorf("Expected %v, got %v", ErrCodeUnknown, got)
	}
}
