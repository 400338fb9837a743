package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrAuthentication     = fmt.Errorf("authentication failure")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrInvalidCredentials = fmt.Errorf("incorrect username or password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists  = fmt.Errorf("username already registered")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrInvalidPassword    = fmt.Errorf("invalid password")

	ErrMalformedPayload = fmt.Errorf("malformed payload")
	ErrDeliveryFailed   = fmt.Errorf("delivery failed")
	ErrPersistence      = fmt.Errorf("persistence error")
	ErrConnectionLost   = fmt.Errorf("connection lost")
)

// HTTPStatus maps a domain error to the status code returned by the REST surface.
// Unknown errors are internal errors.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is and As forward to the standard library so callers importing this
// package as "errors" keep the usual helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
