package reactions

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised by the upgrade machinery.
type ErrorKind string

const (
	// IllegalConstructor: the constructor is not registered, or is being invoked
	// directly instead of through an upgrade.
	IllegalConstructor ErrorKind = "IllegalConstructor"
	// InvalidState: the element on top of the construction stack was already
	// constructed.
	InvalidState ErrorKind = "InvalidState"
	// ConstructorMismatch: the constructor returned an element other than the one
	// being upgraded.
	ConstructorMismatch ErrorKind = "ConstructorMismatch"
)

// Error is returned by the upgrade machinery.
type Error struct {
	Kind    ErrorKind
	Element string // local name of the element involved, if any
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Element != "" {
		msg = fmt.Sprintf("%s <%s>", msg, e.Element)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var _ error = (*Error)(nil)

var (
	ErrIllegalConstructor  = &Error{Kind: IllegalConstructor}
	ErrInvalidState        = &Error{Kind: InvalidState}
	ErrConstructorMismatch = &Error{Kind: ConstructorMismatch}
)
