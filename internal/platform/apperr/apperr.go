// Package apperr defines the error kinds shared by the stores, the report
// assembler and the lifecycle manager, and their mapping to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationError reports malformed, missing or conflicting input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StoreError wraps a failure of the backing store. The cause is kept for
// logging and is never shown to API clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError for the given entity and id.
func NotFound(entity string, id interface{}) error {
	var s string
	if id != nil {
		s = fmt.Sprint(id)
	}
	return &NotFoundError{Entity: entity, ID: s}
}

// Store wraps err as a StoreError. Errors that already carry one of the
// three kinds are returned unchanged so the kind is never downgraded.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsNotFound(err) || IsStore(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// HTTPStatus returns the status code the transport layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an echo HTTP error. Validation and not-found
// messages pass through; anything else gets a generic message and keeps the
// cause as the internal error for the request logger.
func HTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
