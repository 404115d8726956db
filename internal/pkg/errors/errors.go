package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned when a well-formed usage key resolves to nothing.
	ErrItemNotFound = errors.New("item not found")
	// ErrCourseNotFound is returned when a well-formed course key resolves to nothing.
	ErrCourseNotFound = errors.New("course not found")
	// ErrPermissionDenied is returned when a runtime service rejects an operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDuplicateItem is returned when a create collides with an existing block id.
	ErrDuplicateItem = errors.New("duplicate item")
	// ErrReadOnlyStore is returned on any write against the XML store.
	ErrReadOnlyStore = errors.New("store is read-only")
)

// InvalidKeyFormatError reports input that cannot be parsed as an opaque key.
type InvalidKeyFormatError struct {
	Input  string
	Reason string
}

func (e *InvalidKeyFormatError) Error() string {
	return fmt.Sprintf("invalid key format %q: %s", e.Input, e.Reason)
}

// UnknownBlockTypeError reports a registry lookup for an unregistered block type.
type UnknownBlockTypeError struct {
	Name string
}

func (e *UnknownBlockTypeError) Error() string {
	return fmt.Sprintf("unknown block type %q", e.Name)
}

// AmbiguousBlockTypeError reports two registrations claiming the same name.
type AmbiguousBlockTypeError struct {
	Name string
}

func (e *AmbiguousBlockTypeError) Error() string {
	return fmt.Sprintf("block type %q registered more than once", e.Name)
}

// VersionConflictError reports an optimistic-concurrency failure on write. The
// caller rebases on CurrentVersion and retries; the store never retries itself.
type VersionConflictError struct {
	CourseID        string
	Branch          string
	ExpectedVersion string
	CurrentVersion  string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: expected head %s, found %s",
		e.CourseID, e.Branch, e.ExpectedVersion, e.CurrentVersion)
}

// FieldTypeError reports a value that cannot be coerced to its declared field
// type. This indicates a data bug and is surfaced, never swallowed.
type FieldTypeError struct {
	Field string
	Want  string
	Value interface{}
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %q: cannot coerce %T(%v) to %s", e.Field, e.Value, e.Value, e.Want)
}

func Is(err, target error) bool     { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
