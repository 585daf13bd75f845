package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestParleyError_Error(t *testing.T) {
	err := &ParleyError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "session not found",
	}

	expected := "NOT_FOUND: session not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidUtterance(t *testing.T) {
	err := NewInvalidUtterance("empty text")

	if err.Code != ErrInvalidUtterance {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidUtterance)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["reason"] != "empty text" {
		t.Errorf("Details[reason] = %v, want %q", err.Details["reason"], "empty text")
	}
}

func TestLifecycleErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *ParleyError
		code ErrorCode
	}{
		{"not active", NewSessionNotActive("s1", "IDLE"), ErrSessionNotActive},
		{"already active", NewAlreadyActive("s1"), ErrAlreadyActive},
		{"ended", NewSessionEnded("s1"), ErrSessionEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != 409 {
				t.Errorf("Status = %d, want 409", tt.err.Status)
			}
			if tt.err.Details["session_id"] != "s1" {
				t.Errorf("Details[session_id] = %v, want s1", tt.err.Details["session_id"])
			}
		})
	}
}

func TestNewSessionNotActive_IncludesState(t *testing.T) {
	err := NewSessionNotActive("s1", "ENDED")
	if err.Details["state"] != "ENDED" {
		t.Errorf("Details[state] = %v, want ENDED", err.Details["state"])
	}
}

func TestNewClassifierError_Unwraps(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewClassifierError("objection", cause)

	if err.Code != ErrClassifier {
		t.Errorf("Code = %q, want %q", err.Code, ErrClassifier)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if err.Message != "classifier objection: boom" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewSuggestionRequestFailed(t *testing.T) {
	err := NewSuggestionRequestFailed("req-1", fmt.Errorf("503 upstream"))

	if err.Code != ErrSuggestionRequestFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrSuggestionRequestFailed)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["request_id"] != "req-1" {
		t.Errorf("Details[request_id] = %v, want req-1", err.Details["request_id"])
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("database connection failed"))
	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Message != "database connection failed" {
		t.Errorf("Message = %q", err.Message)
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewSessionEnded("s"), ErrSessionEnded, true},
		{"different code", NewSessionEnded("s"), ErrSessionNotActive, false},
		{"wrapped", fmt.Errorf("end: %w", NewSessionEnded("s")), ErrSessionEnded, true},
		{"plain error", fmt.Errorf("x"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewAlreadyActive("s")); got != ErrAlreadyActive {
		t.Errorf("CodeOf() = %q, want %q", got, ErrAlreadyActive)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestStorageErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    *ParleyError
		code   ErrorCode
		status int
	}{
		{"conflict", NewConflict("summary exists"), ErrConflict, 409},
		{"file not found", NewFileNotFound("/tmp/x.jsonl"), ErrFileNotFound, 404},
		{"cancelled", NewCancelled("export"), ErrCancelled, 499},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
		})
	}

	if got := NewFileNotFound("/tmp/x.jsonl").Details["path"]; got != "/tmp/x.jsonl" {
		t.Errorf("Details[path] = %v, want %q", got, "/tmp/x.jsonl")
	}
	if got := NewCancelled("import").Message; got != "import cancelled" {
		t.Errorf("Message = %q, want %q", got, "import cancelled")
	}
}

func TestAs(t *testing.T) {
	inner := NewNotFound("abc")
	wrapped := fmt.Errorf("fetch: %w", inner)

	if got, ok := As(wrapped); !ok || got != inner {
		t.Errorf("As(wrapped) = %v, %v; want inner error", got, ok)
	}
	if _, ok := As(stderrors.New("plain")); ok {
		t.Error("As(plain) should not match")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should not match")
	}
}
