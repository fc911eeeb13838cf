package customelements

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported by the Registry.
type ErrorKind string

const (
	NotAConstructor       ErrorKind = "NotAConstructor"
	InvalidName           ErrorKind = "InvalidName"
	DuplicateName         ErrorKind = "DuplicateName"
	DuplicateConstructor  ErrorKind = "DuplicateConstructor"
	InvalidExtends        ErrorKind = "InvalidExtends"
	UnknownBuiltinElement ErrorKind = "UnknownBuiltinElement"
	ReentrantDefinition   ErrorKind = "ReentrantDefinition"
	PrototypeNotObject    ErrorKind = "PrototypeNotObject"
	CallbackNotCallable   ErrorKind = "CallbackNotCallable"
	NotIterable           ErrorKind = "NotIterable"
	ConversionFailed      ErrorKind = "ConversionFailed"
)

// Class returns the web exception class a kind is surfaced as to script.
func (k ErrorKind) Class() string {
	switch k {
	case InvalidName:
		return "SyntaxError"
	case DuplicateName, DuplicateConstructor, InvalidExtends, UnknownBuiltinElement, ReentrantDefinition:
		return "NotSupportedError"
	default:
		return "TypeError"
	}
}

// Error is returned by Registry operations.
type Error struct {
	Kind    ErrorKind
	Name    string // name or value the failure is about, if any
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Class returns the web exception class of the error.
func (e *Error) Class() string { return e.Kind.Class() }

// Is matches any *Error of the same kind, so the ErrX sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var _ error = (*Error)(nil)

// Sentinels for errors.Is.
var (
	ErrNotAConstructor       = &Error{Kind: NotAConstructor}
	ErrInvalidName           = &Error{Kind: InvalidName}
	ErrDuplicateName         = &Error{Kind: DuplicateName}
	ErrDuplicateConstructor  = &Error{Kind: DuplicateConstructor}
	ErrInvalidExtends        = &Error{Kind: InvalidExtends}
	ErrUnknownBuiltinElement = &Error{Kind: UnknownBuiltinElement}
	ErrReentrantDefinition   = &Error{Kind: ReentrantDefinition}
	ErrPrototypeNotObject    = &Error{Kind: PrototypeNotObject}
	ErrCallbackNotCallable   = &Error{Kind: CallbackNotCallable}
	ErrNotIterable           = &Error{Kind: NotIterable}
	ErrConversionFailed      = &Error{Kind: ConversionFailed}
)

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, name, format string, args ...any) *Error {
	return &Error{Kind: kind, Name: name, Message: fmt.Sprintf(format, args...)}
}
