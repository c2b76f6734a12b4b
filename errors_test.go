package composite

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ERROR HELPER FUNCTION TESTS
// =============================================================================

// TestIsNotFound verifies IsNotFound helper
func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"ErrRecordNotFound", ErrRecordNotFound, true},
		{"sql.ErrNoRows", sql.ErrNoRows, true},
		{"wrapped ErrRecordNotFound", WrapQueryError("SELECT", "SELECT * FROM orders", nil, ErrRecordNotFound), true},
		{"relation not found", WrapRelationError("order", "order_lines", ErrRecordNotFound), true},
		{"other error", errors.New("some error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsNotFound(tt.err)
			if result != tt.expected {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

// TestIsConfigurationError verifies every configuration sentinel is matched
func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"asymmetric", &ConfigurationError{Err: ErrAsymmetricalKey}, true},
		{"already constrained", &ConfigurationError{Err: ErrAlreadyConstrained}, true},
		{"wrapped", WrapRelationError("r", "t", &ConfigurationError{Err: ErrEmptyKey}), true},
		{"bare sentinel", ErrAsymmetricalKey, false},
		{"not implemented", ErrNotImplemented, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigurationError(tt.err); got != tt.expected {
				t.Errorf("IsConfigurationError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestConfigurationError_Message(t *testing.T) {
	err := &ConfigurationError{
		Relation: "order",
		Local:    Cols("region", "order_no"),
		Foreign:  Cols("region"),
		Err:      ErrAsymmetricalKey,
	}

	msg := err.Error()
	for _, want := range []string{"asymmetrical", "relation 'order'", "local=[region order_no]", "foreign=[region]"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	if !errors.Is(err, ErrAsymmetricalKey) {
		t.Error("expected to unwrap to ErrAsymmetricalKey")
	}
}

// TestWrapQueryError verifies query error wrapping
func TestWrapQueryError(t *testing.T) {
	if WrapQueryError("SELECT", "q", nil, nil) != nil {
		t.Error("nil error should stay nil")
	}

	if err := WrapQueryError("SELECT", "q", nil, sql.ErrNoRows); err != ErrRecordNotFound {
		t.Errorf("sql.ErrNoRows should map to ErrRecordNotFound, got %v", err)
	}

	base := errors.New("syntax error")
	err := WrapQueryError("SELECT", "SELECT * FROM orders WHERE region = ?", []any{"EU"}, base)

	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if queryErr.Operation != "SELECT" || !errors.Is(err, base) {
		t.Errorf("unexpected query error %+v", queryErr)
	}
	if !strings.Contains(err.Error(), "Args: [EU]") {
		t.Errorf("expected args in message, got %q", err.Error())
	}
}

// TestWrapRelationError verifies relation error wrapping
func TestWrapRelationError(t *testing.T) {
	if WrapRelationError("r", "t", nil) != nil {
		t.Error("nil error should stay nil")
	}

	err := WrapRelationError("lines", "orders", ErrNotImplemented)
	if !IsNotImplemented(err) {
		t.Error("expected ErrNotImplemented to be matched")
	}
	want := "composite: relation 'lines' error on table orders: composite: method not implemented"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestFormatArgs(t *testing.T) {
	if got := formatArgs(nil); got != "[]" {
		t.Errorf("formatArgs(nil) = %q", got)
	}

	long := make([]any, 100)
	for i := range long {
		long[i] = "abcdef"
	}
	got := formatArgs(long)
	if len(got) > 201 || !strings.HasSuffix(got, "...]") {
		t.Errorf("expected truncated output, got %d chars", len(got))
	}
}
