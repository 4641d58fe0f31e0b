package errors

import (
	stdErrors "errors"
	"fmt"
)

// Error is the typed error every layer returns. The HTTP layer maps Code to a
// status and decides from the code metadata how much of it clients see.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message before building the error.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost typed error in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Normalize guarantees a typed error; untyped failures become internal ones.
func Normalize(err error) *Error {
	if typed := As(err); typed != nil {
		return typed
	}
	if err == nil {
		return New(CodeInternal, "unknown error")
	}
	return Wrap(CodeInternal, err, "unexpected error")
}

// PublicMessage is the text a client may see for err. Codes that describe a
// caller mistake expose the specific reason; the rest use the generic text.
func PublicMessage(err error) string {
	typed := Normalize(err)
	meta := MetadataFor(typed.Code())
	if meta.ExposeMessage && typed.Message() != "" {
		return typed.Message()
	}
	return meta.PublicMessage
}

// PublicDetails returns the details a client may see, or nil.
func PublicDetails(err error) any {
	typed := Normalize(err)
	if !MetadataFor(typed.Code()).DetailsAllowed {
		return nil
	}
	return typed.Details()
}
