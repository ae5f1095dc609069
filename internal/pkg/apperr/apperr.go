package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a domain failure so handlers can map it to an HTTP status
// without matching on message strings.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindInvalidTransition Kind = "invalid_transition"
	KindPermissionDenied  Kind = "permission_denied"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Error is a structured domain failure: a kind, a human-readable message and
// optional details (amounts, allowed next states, field names).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string, details ...map[string]interface{}) *Error {
	e := &Error{Kind: kind, Message: msg}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

func Conflict(msg string) *Error { return newError(KindConflict, msg) }

func CapacityExceeded(msg string, details map[string]interface{}) *Error {
	return newError(KindCapacityExceeded, msg, details)
}

func InvalidTransition(msg string, details map[string]interface{}) *Error {
	return newError(KindInvalidTransition, msg, details)
}

func PermissionDenied(msg string) *Error { return newError(KindPermissionDenied, msg) }

func Validation(msg string) *Error { return newError(KindValidation, msg) }

func Internal(msg string) *Error { return newError(KindInternal, msg) }

// KindOf returns the kind of err, or KindInternal for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Wrap passes domain errors through untouched and collapses everything else
// (storage faults, driver errors) into a generic Internal failure so no
// implementation detail leaks to callers.
func Wrap(err error, internalMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(internalMsg)
}

// HTTPStatus maps an error to the status code its kind implies.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict, KindCapacityExceeded, KindInvalidTransition:
		return fiber.StatusConflict
	case KindPermissionDenied:
		return fiber.StatusForbidden
	case KindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// DetailsOf returns the details map of a domain error (nil otherwise).
func DetailsOf(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
