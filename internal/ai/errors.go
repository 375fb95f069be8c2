package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the extraction and matching pipeline.
type ErrorKind string

const (
	// ParseFailure means the model output was not valid or complete JSON, or the input was too large.
	ParseFailure ErrorKind = "parse_failure"
	// BackendUnavailable means the embedding or similarity backend could not be used.
	BackendUnavailable ErrorKind = "backend_unavailable"
	// CompositionFailure means message generation returned no usable content.
	CompositionFailure ErrorKind = "composition_failure"
	// TransportFailure means the completion service could not be reached after its retry budget.
	TransportFailure ErrorKind = "transport_failure"
)

// ExtractionError is the tagged error returned by the pipeline components.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an ExtractionError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Cause: cause}
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the first ExtractionError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return extractionErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries an ExtractionError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}
