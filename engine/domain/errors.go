package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicatePlate  = errors.New("duplicate plate")
	ErrInvalidRecord   = errors.New("invalid vehicle record")
	ErrInvalidProtocol = errors.New("invalid protocol")
	ErrInvalidEvent    = errors.New("invalid storage event")
	ErrNotLoaded       = errors.New("record store not loaded")
	ErrAlreadyLoaded   = errors.New("record store already loaded")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// DispatchStage names the step of a dispatch that failed.
type DispatchStage string

const (
	StageSubscribe DispatchStage = "subscribe"
	StagePublish   DispatchStage = "publish"
)

// DispatchError reports a failed subscribe or publish for one contact.
type DispatchError struct {
	Stage   DispatchStage
	Contact string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to %q: %v", e.Stage, e.Contact, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RecognitionError reports a failed recognizer call for one object. It is the
// only error kind the pipeline returns to its host.
type RecognitionError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognize %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
