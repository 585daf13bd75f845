package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Parley error code.
type ErrorCode string

const (
	ErrInvalidUtterance        ErrorCode = "INVALID_UTTERANCE"         // 400
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"           // 400
	ErrNotFound                ErrorCode = "NOT_FOUND"                 // 404
	ErrSessionNotActive        ErrorCode = "SESSION_NOT_ACTIVE"        // 409
	ErrAlreadyActive           ErrorCode = "ALREADY_ACTIVE"            // 409
	ErrSessionEnded            ErrorCode = "SESSION_ENDED"             // 409
	ErrConflict                ErrorCode = "CONFLICT"                  // 409
	ErrFileNotFound            ErrorCode = "FILE_NOT_FOUND"            // 404
	ErrCancelled               ErrorCode = "CANCELLED"                 // 499
	ErrClassifier              ErrorCode = "CLASSIFIER_ERROR"          // 500
	ErrInternal                ErrorCode = "INTERNAL"                  // 500
	ErrSuggestionRequestFailed ErrorCode = "SUGGESTION_REQUEST_FAILED" // 502
)

// ParleyError represents a structured error with code, status, and details.
type ParleyError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *ParleyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ParleyError) Unwrap() error {
	return e.cause
}

// NewInvalidUtterance creates a 400 error for speech events that cannot become an Utterance.
func NewInvalidUtterance(reason string) *ParleyError {
	return &ParleyError{
		Code:    ErrInvalidUtterance,
		Status:  400,
		Message: fmt.Sprintf("invalid utterance: %s", reason),
		Details: map[string]any{"reason": reason},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ParleyError {
	return &ParleyError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing session or stored summary.
func NewNotFound(identifier string) *ParleyError {
	return &ParleyError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("session not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSessionNotActive creates a 409 error for ingest outside the ACTIVE state.
func NewSessionNotActive(sessionID, state string) *ParleyError {
	return &ParleyError{
		Code:    ErrSessionNotActive,
		Status:  409,
		Message: fmt.Sprintf("session %s is not active (state %s)", sessionID, state),
		Details: map[string]any{"session_id": sessionID, "state": state},
	}
}

// NewAlreadyActive creates a 409 error for start on a running session.
func NewAlreadyActive(sessionID string) *ParleyError {
	return &ParleyError{
		Code:    ErrAlreadyActive,
		Status:  409,
		Message: fmt.Sprintf("session %s is already active", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewSessionEnded creates a 409 error for any transition attempted on an ENDED session.
func NewSessionEnded(sessionID string) *ParleyError {
	return &ParleyError{
		Code:    ErrSessionEnded,
		Status:  409,
		Message: fmt.Sprintf("session %s has ended; create a new session", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewConflict creates a 409 error for stored-summary collisions.
func NewConflict(msg string) *ParleyError {
	return &ParleyError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewFileNotFound creates a 404 error for a missing export or import file.
func NewFileNotFound(path string) *ParleyError {
	return &ParleyError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *ParleyError {
	return &ParleyError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewClassifierError wraps an unexpected classifier failure.
func NewClassifierError(classifier string, cause error) *ParleyError {
	msg := "classifier failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &ParleyError{
		Code:    ErrClassifier,
		Status:  500,
		Message: fmt.Sprintf("classifier %s: %s", classifier, msg),
		Details: map[string]any{"classifier": classifier},
		cause:   cause,
	}
}

// NewSuggestionRequestFailed wraps a failure reported by the suggestion collaborator.
func NewSuggestionRequestFailed(requestID string, cause error) *ParleyError {
	msg := "suggestion request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &ParleyError{
		Code:    ErrSuggestionRequestFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"request_id": requestID},
		cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ParleyError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ParleyError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ParleyError with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *ParleyError
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// CodeOf returns the ParleyError code carried by err, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var pErr *ParleyError
	if stderrors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}

// As returns the first ParleyError in err's chain.
func As(err error) (*ParleyError, bool) {
	var pErr *ParleyError
	if stderrors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
