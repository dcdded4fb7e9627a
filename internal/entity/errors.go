package entity

import (
	"errors"
	"strings"
)

var (
	ErrWebhookLogNotFound = errors.New("webhook log not found")
	ErrWebhookLogExists   = errors.New("webhook log already exists")
	// ErrWebhookLogNotRetryable means the record is not in the error state.
	ErrWebhookLogNotRetryable = errors.New("webhook log is not awaiting retry")
)

// FieldEmail is the name MissingFieldError uses for the buyer email.
const FieldEmail = "email"

// MissingFieldError is returned when a notification lacks required order fields.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	if e.OnlyEmail() {
		return "No email provided"
	}
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// OnlyEmail reports whether the email is the single missing field.
func (e *MissingFieldError) OnlyEmail() bool {
	return len(e.Fields) == 1 && e.Fields[0] == FieldEmail
}

// MalformedPayloadError wraps a body that is not a JSON object.
type MalformedPayloadError struct {
	Err error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err == nil {
		return "Invalid JSON"
	}
	return "Invalid JSON: " + e.Err.Error()
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}
