package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Kind classifies a service failure. Every rejected operation carries a
// stable kind plus a human-readable message; nothing internal leaks to
// callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindInsufficientFunds
	KindInvalidState
	KindDuplicate
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindDuplicate:
		return "DUPLICATE_RESOURCE"
	case KindExternal:
		return "EXTERNAL_SERVICE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InsufficientFundsf(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func InvalidStatef(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Duplicatef(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// Externalf marks a failure in a dependency outside the database, such as
// the notification queue.
func Externalf(format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or infrastructure error. The cause is kept for
// logs; callers only ever see the message.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
// Pre-insert existence checks race with concurrent writers, so insert sites
// translate the constraint error instead of relying on the check alone.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// KindOf extracts the kind from any error chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error kind to the status code the handler layer sends.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindInvalidState:
		return http.StatusConflict
	case KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns what callers are shown. Unknown/internal failures get
// a generic message, never the underlying error.
func UserMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindUnknown {
		return se.Message
	}
	return "An internal error occurred"
}
