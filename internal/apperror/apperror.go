package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindConflict
)

// Error carries a short machine-readable reason and the kind used to pick
// the HTTP status. Anything that is not an *Error is a storage/system error.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func Validation(reason string) error { return &Error{Kind: KindValidation, Reason: reason} }
func Conflict(reason string) error   { return &Error{Kind: KindConflict, Reason: reason} }

var (
	ErrUnauthorized   = &Error{Kind: KindUnauthorized, Reason: "unauthorized"}
	ErrThreadNotFound = &Error{Kind: KindNotFound, Reason: "thread not found"}
	ErrUserNotFound   = &Error{Kind: KindNotFound, Reason: "user not found"}
	ErrReviewNotFound = &Error{Kind: KindNotFound, Reason: "review not found"}
	ErrRequestMissing = &Error{Kind: KindNotFound, Reason: "request not found"}
	ErrToolNotFound   = &Error{Kind: KindNotFound, Reason: "tool not found"}
)

// Is reports whether err is an app error of the given kind
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Status maps an error to the HTTP status code returned to clients
func Status(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
