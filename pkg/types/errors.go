package types

import "fmt"

// ValidationError reports malformed or incomplete input. It is raised
// before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError wraps a field-level validation failure.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced assertion, entity, document or
// chunk does not exist. It is raised before any write happens.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFoundError reports a missing referenced record.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError reports an operation rejected because the target is already
// in a terminal state, e.g. retracting an assertion that was previously
// retracted or superseded.
type ConflictError struct {
	AssertionID string
	Status      AssertionStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("assertion %s is already %s", e.AssertionID, e.Status)
}

// UpstreamError reports a failed external collaborator call (fetch, embed,
// extract, vector, graph). For bulk operations it is recorded against the
// failing item only and never aborts siblings.
type UpstreamError struct {
	Collaborator string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError tags an external failure with its collaborator name.
func NewUpstreamError(collaborator string, err error) *UpstreamError {
	return &UpstreamError{Collaborator: collaborator, Err: err}
}
