package attachment

import "fmt"

// FileNotFoundMessage is returned when a confirmation finds no object at the
// claimed key. Clients react to it by retrying the raw upload.
const FileNotFoundMessage = "File not found in storage. Please upload the file first."

// ValidationError reports malformed input. Field names the offending input
// using its wire name, or is empty when the condition is not tied to one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent owning record or, at confirmation time, an
// absent object.
type NotFoundError struct {
	Message string
	Err     error
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// UpstreamStorageError reports a failure of the object store client itself.
type UpstreamStorageError struct {
	Op  string
	Key string
	Err error
}

func (e *UpstreamStorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *UpstreamStorageError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed database operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
