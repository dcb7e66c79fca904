package service

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when the backend rejected the session token.
// The session layer has already cleared the token and notified observers, so
// callers must not report it as a regular failure.
var ErrSessionExpired = errors.New("session expired")

// ErrNotLoggedIn is returned by gated operations when no token is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// BusinessError is an envelope whose status is not "ok", or an HTTP error
// carrying a detail message.
type BusinessError struct {
	Status  string
	Code    int
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != 0 {
		return fmt.Sprintf("request failed with status %d", e.Code)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

func (e *BusinessError) Unwrap() error { return e.Err }

// TransportError means the call itself failed: connectivity, timeout or a
// response that could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// IsBusiness reports whether err is a BusinessError.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
