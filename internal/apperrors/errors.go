// Package apperrors holds the error taxonomy shared by the cart, checkout and
// catalog services, and its mapping onto HTTP responses.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrConflict          = errors.New("conflict")
	ErrStorage           = errors.New("storage failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// genericMessage is what clients see for anything that is not their fault.
const genericMessage = "Something went wrong"

// HTTPStatus picks the response code for err. Unclassified errors are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that is safe to send to a client.
// Client errors keep their description; server errors are replaced by a
// generic message so storage details never leak.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return genericMessage
	}
	if errors.Is(err, ErrConflict) && !IsClientConflict(err) {
		return "The request conflicted with a concurrent update, please retry"
	}
	return err.Error()
}

// Retryable reports whether repeating the same request may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) && !IsClientConflict(err)
}

// clientConflict marks conflicts caused by the request itself (duplicate
// email and the like) rather than by a concurrent writer.
type clientConflict struct{ msg string }

func (e *clientConflict) Error() string { return e.msg }
func (e *clientConflict) Unwrap() error { return ErrConflict }

// NewClientConflict builds a non-retryable conflict with a client-facing message.
func NewClientConflict(msg string) error { return &clientConflict{msg: msg} }

// IsClientConflict reports whether err is a non-retryable client conflict.
func IsClientConflict(err error) bool {
	var cc *clientConflict
	return errors.As(err, &cc)
}
