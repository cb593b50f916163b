package errs

import (
	"errors"
	"fmt"
)

// Application error codes. They are mapped to HTTP status codes in ReturnError.
const (
	ECONFLICT     = "conflict"
	EINTERNAL     = "internal"
	EINVALID      = "invalid"
	ENOTFOUND     = "not_found"
	EUNAUTHORIZED = "unauthorized"
)

// Error represents an application-specific error. Its Message is safe to be
// shown to the end user. Errors that are not of this type are considered
// internal and their details never leave the server.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("app error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

var (
	// IdInvalid is returned when a route or filter carries an ID that is not a positive integer.
	IdInvalid = Errorf(EINVALID, "Invalid Id format.")
	// UserIdInvalid is returned when an operation is attempted without a valid acting user.
	UserIdInvalid = Errorf(EINVALID, "A valid user ID is required.")
	// KindInvalid is returned when a relation kind is neither follow nor favorite.
	KindInvalid = Errorf(EINVALID, "Unknown relation kind.")
)
