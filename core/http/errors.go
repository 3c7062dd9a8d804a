package http

import (
	"fmt"

	"github.com/pkg/errors"
)

// StatusCoder is implemented by errors that know which status they map to
type StatusCoder interface {
	StatusCode() int
}

// Error is an application error with an explicit status
type Error struct {
	Status  int
	Message string
}

// NewError creates an error that responds with status and message
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Errorf is NewError with a formatted message
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return StatusText(e.Status)
	}
	return e.Message
}

// StatusCode implements StatusCoder
func (e *Error) StatusCode() int {
	return e.Status
}

// ErrorStatus returns the status err maps to: the status of the outermost
// StatusCoder in the chain, or 500.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 100 && code <= 999 {
			return code
		}
	}
	return StatusInternalServerError
}

// ErrorResponse converts an extraction or handler error into a plain text
// response
func ErrorResponse(err error) *Response {
	status := ErrorStatus(err)

	msg := err.Error()
	if msg == "" {
		msg = StatusText(status)
	}

	return Text(status, msg)
}
