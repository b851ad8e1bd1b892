package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ukydev/aivodrive/internal/db"
)

// Error is a failure the caller can act on, classified by HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

// notFound maps db.ErrNotFound to a 404 naming what; other errors pass through.
func notFound(err error, what string) error {
	if errors.Is(err, db.ErrNotFound) {
		return NotFound(what)
	}
	return err
}

// missingRef maps db.ErrNotFound for a referenced document to a 400.
func missingRef(err error, what string) error {
	if errors.Is(err, db.ErrNotFound) {
		return Validation("%s not found", what)
	}
	return err
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a
// service error.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
