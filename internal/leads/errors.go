package leads

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	// KindUnexpected covers store and connectivity failures.
	KindUnexpected Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// Error is a typed failure raised by the lead service.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so the sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = &Error{Kind: KindNotFound, Message: "Lead not found"}

	// ErrDuplicateEmail is returned when another lead already uses the email
	ErrDuplicateEmail = &Error{Kind: KindConflict, Message: "A lead with this email already exists"}
)

// ValidationError reports input the client has to correct.
func ValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ConflictError reports a uniqueness violation.
func ConflictError(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NotFoundError reports a missing record.
func NotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf classifies err. Anything that is not a *Error is unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Message
	}
	return "Internal server error"
}
