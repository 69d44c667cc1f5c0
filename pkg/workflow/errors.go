package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow construction error.
type Kind string

const (
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindDuplicate       Kind = "DUPLICATE"
	KindNotFound        Kind = "NOT_FOUND"
	KindConfiguration   Kind = "CONFIGURATION"
	KindPrecondition    Kind = "PRECONDITION"
)

// Error is returned by every validating operation in this package.
// Match on the kind with errors.Is against the Err* sentinels.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrDuplicate       = &Error{Kind: KindDuplicate}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrPrecondition    = &Error{Kind: KindPrecondition}
)

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or "" when err is not (and does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
