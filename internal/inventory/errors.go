package inventory

import "fmt"

// ValidationError reports input the caller must correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a collision with an existing unique value or a
// state that does not allow the requested transition.
type ConflictError struct {
	Message   string
	Retryable bool
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError reports a lookup that matched nothing.
type NotFoundError struct {
	What string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Key)
}

// MalformedDataError describes an existing code or tag that could not be
// parsed. It is logged and skipped, never returned to clients.
type MalformedDataError struct {
	Value  string
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed identifier %q: %s", e.Value, e.Reason)
}

func validationErr(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
