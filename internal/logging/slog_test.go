package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "calendar.create")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithService(t *testing.T) {
	logger := slog.Default()
	result := WithService(logger, "gmail")
	if result == nil {
		t.Error("WithService returned nil")
	}
}

func TestWithCommand(t *testing.T) {
	logger := slog.Default()
	result := WithCommand(logger, "TOGGLE_DONE")
	if result == nil {
		t.Error("WithCommand returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("calendar.delete")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "calendar.delete" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "calendar.delete")
	}
}

func TestDayKeyAttr(t *testing.T) {
	attr := DayKey("todos_2025-01-01")
	if attr.Key != KeyDayKey {
		t.Errorf("DayKey key = %q, want %q", attr.Key, KeyDayKey)
	}
	if attr.Value.String() != "todos_2025-01-01" {
		t.Errorf("DayKey value = %q, want %q", attr.Value.String(), "todos_2025-01-01")
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	// A nil error must produce an attribute slog will omit from output
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"regular email", "user@example.com"},
		{"empty email", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if tt.email == "" {
				if got != "" {
					t.Errorf("AnonymizeEmail(%q) = %q, want empty", tt.email, got)
				}
				return
			}
			if !strings.HasPrefix(got, "user:") {
				t.Errorf("AnonymizeEmail(%q) = %q, want user: prefix", tt.email, got)
			}
			if strings.Contains(got, tt.email) {
				t.Errorf("AnonymizeEmail(%q) leaked the address", tt.email)
			}
		})
	}
}

func TestAnonymizeEmailStable(t *testing.T) {
	a := AnonymizeEmail("user@example.com")
	b := AnonymizeEmail("user@example.com")
	if a != b {
		t.Errorf("AnonymizeEmail not stable: %q != %q", a, b)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q, want <empty>", got)
	}
	got := SanitizeToken("ya29.secret-token")
	if strings.Contains(got, "secret") {
		t.Errorf("SanitizeToken leaked token content: %q", got)
	}
}
