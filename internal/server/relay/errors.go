package relay

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
)

type Kind int

const (
	// KindIO means every candidate failed with a status or a network error.
	KindIO Kind = iota + 1
	// KindNoBackend means there was no candidate to begin with.
	KindNoBackend
	// KindInterrupted means the caller cancelled or the inbound stream broke.
	KindInterrupted
	// KindTooLarge means the inbound stream exceeded the configured maximum.
	KindTooLarge
	// KindSpool means the gateway could not buffer the payload locally.
	KindSpool
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNoBackend:
		return "no_backend"
	case KindInterrupted:
		return "interrupted"
	case KindTooLarge:
		return "too_large"
	case KindSpool:
		return "spool"
	default:
		return "unknown"
	}
}

// StatusClientClosedRequest is reported when the relay was interrupted.
const StatusClientClosedRequest = 499

// Error is the terminal relay failure.
type Error struct {
	Kind Kind
	// Status is the last HTTP status a backend answered with, 0 if none.
	Status   int
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("relay %s after %d attempt(s)", e.Kind, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(", last status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the failure to the status returned to the uploader.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInterrupted:
		return StatusClientClosedRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNoBackend:
		return http.StatusBadGateway
	case KindSpool:
		if errors.Is(e.Err, syscall.ENOSPC) {
			return http.StatusInsufficientStorage
		}
		return http.StatusInternalServerError
	}
	switch e.Status {
	case http.StatusConflict, http.StatusRequestEntityTooLarge, http.StatusServiceUnavailable, http.StatusInsufficientStorage:
		return e.Status
	default:
		return http.StatusBadGateway
	}
}

// StatusOf returns the HTTP status for any error coming out of Relay.
func StatusOf(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func IsInterrupted(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindInterrupted
}
