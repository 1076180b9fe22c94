package api

import (
	"errors"
	"fmt"
)

// Server error codes the client distinguishes. Anything else is treated as a
// generic rejection.
const (
	CodeDeviceInUse   = "DEVICE_IN_USE"
	CodeDeviceRevoked = "DEVICE_REVOKED"
	CodeInvalidCode   = "INVALID_CODE"
	CodeInvalidPIN    = "INVALID_PIN"
)

// APIError is a rejection from the POS backend: the server was reached and
// answered with an error code. It never indicates a connectivity problem.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server rejected request: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server rejected request: HTTP %d: %s", e.StatusCode, e.Message)
}

// TransportError indicates the server could not be reached (connection refused,
// timeout, DNS failure). Callers must not mutate local trust state on it.
type TransportError struct {
	Op  string // e.g. "pair start", "login"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: server unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport checks if an error is a TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsDeviceInUse checks for the DEVICE_IN_USE conflict, which needs distinct
// user-facing handling (pick another device identity or unpair the other one).
func IsDeviceInUse(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == CodeDeviceInUse
}

// IsRevoked checks for an explicit revocation rejection.
func IsRevoked(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == CodeDeviceRevoked
}
