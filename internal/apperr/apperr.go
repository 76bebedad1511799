// Package apperr defines the error kinds shared by the store, AI and service
// layers. Handlers translate kinds into HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrIrrelevant     = errors.New("report is not relevant")
	ErrGeneration     = errors.New("generation failed")
	ErrClassification = errors.New("classification failed")
	ErrTranscription  = errors.New("transcription failed")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrStorage        = errors.New("storage failure")
	ErrNotification   = errors.New("notification failed")
)

// kindError carries a kind alongside the underlying cause so both match errors.Is.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.cause)
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: err}
}

// New returns an error of the given kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return &kindError{kind: kind, cause: fmt.Errorf(format, args...)}
}
