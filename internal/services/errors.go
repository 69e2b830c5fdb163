package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a malformed or internally inconsistent request,
// naming the offending field.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Entity, e.Field, e.Reason)
}

// NotFoundError reports a resource code that does not resolve for the
// acting user. Foreign-owned records resolve to this, never to the record.
type NotFoundError struct {
	Entity       string
	ResourceCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with resource code: %s", e.Entity, e.ResourceCode)
}

// UnauthorizedError reports that the acting principal does not match any
// user record.
type UnauthorizedError struct {
	Email string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("no user found for principal: %s", e.Email)
}

// InsufficientFundsError reports a balance mutation rejected by an
// overdraft or credit-limit guard.
type InsufficientFundsError struct {
	Reason string
}

func (e *InsufficientFundsError) Error() string {
	return e.Reason
}

// statusForError maps the error taxonomy to HTTP status codes. Anything
// outside the taxonomy is treated as an internal failure.
func statusForError(err error) int {
	var (
		validationErr   *ValidationError
		notFoundErr     *NotFoundError
		unauthorizedErr *UnauthorizedError
		fundsErr        *InsufficientFundsError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &fundsErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &unauthorizedErr):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
