package app

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken indicates a signup with an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPatientNotFound indicates a missing patient record.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrSessionNotFound indicates a missing or closed assistant session.
	ErrSessionNotFound = errors.New("conversation not found")
	// ErrSendInFlight rejects a send while another is outstanding.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrNothingToSend rejects a send with no text and no attachment.
	ErrNothingToSend = errors.New("nothing to send")
	// ErrAttachmentTooLarge rejects an oversized image attachment.
	ErrAttachmentTooLarge = errors.New("attachment too large")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
