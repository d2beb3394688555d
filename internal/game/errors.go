package game

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeNotFound              Code = "NOT_FOUND"
	CodeAlreadyLocked         Code = "ALREADY_LOCKED"
	CodeLifelineExhausted     Code = "LIFELINE_EXHAUSTED"
	CodeLifelineAlreadyUsed   Code = "LIFELINE_ALREADY_USED"
	CodeResourceLimitExceeded Code = "RESOURCE_LIMIT_EXCEEDED"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeValidation            Code = "VALIDATION_ERROR"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyLocked, CodeLifelineExhausted, CodeLifelineAlreadyUsed, CodeResourceLimitExceeded:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a domain error carrying a code and a user-facing message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a domain error.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the domain code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
