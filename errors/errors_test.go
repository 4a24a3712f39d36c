package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindAllocation,
				Symbol: "hb_buffer_pre_allocate",
				Detail: "buffer growth failed",
			},
			contains: []string{"[call]", "allocation", "hb_buffer_pre_allocate", "buffer growth failed"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "compile failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "compile failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidHandle(PhaseRegistry, "blob")

	if !errors.Is(err, &Error{Phase: PhaseRegistry, Kind: KindInvalidHandle}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseCall, Kind: KindInvalidHandle}) {
		t.Error("unexpected match with different phase")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := CallFailed("hb_shape", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through Unwrap")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseEncode, KindOverflow).
		Symbol("hb_blob_create").
		Value(1 << 40).
		Detail("length %d exceeds u32", 1<<40).
		Build()

	if err.Phase != PhaseEncode || err.Kind != KindOverflow {
		t.Fatalf("builder lost phase/kind: %+v", err)
	}
	if err.Symbol != "hb_blob_create" {
		t.Errorf("expected symbol, got %q", err.Symbol)
	}
	if !strings.Contains(err.Error(), "exceeds u32") {
		t.Errorf("detail not formatted: %q", err.Error())
	}
}

func TestMissingExportsError(t *testing.T) {
	err := &MissingExportsError{Names: []string{"hb_blob_create", "hb_shape"}}

	msg := err.Error()
	if !strings.Contains(msg, "missing 2 foreign symbol(s)") {
		t.Errorf("unexpected header: %q", msg)
	}
	if !strings.Contains(msg, "hb_blob_create") || !strings.Contains(msg, "hb_shape") {
		t.Errorf("symbol names missing: %q", msg)
	}

	if !errors.Is(err, &MissingExportsError{}) {
		t.Error("expected Is match on error type")
	}
}
