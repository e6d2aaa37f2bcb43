package orders

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error class; callers branch on the kind and
// render the message.
type Kind string

const (
	KindValidation            Kind = "VALIDATION_ERROR"
	KindNotFound              Kind = "NOT_FOUND"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindInsufficientStock     Kind = "INSUFFICIENT_STOCK"
	KindConsolidationConflict Kind = "CONSOLIDATION_CONFLICT"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
