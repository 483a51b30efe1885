package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for HTTP 401 on any endpoint.
var ErrUnauthorized = errors.New("unauthorized")

// ErrTransport matches every network level failure.
var ErrTransport = errors.New("network error")

// Error is a non-2xx reply other than 401. Message is the server's own
// message when it sent one, otherwise the per-operation fallback.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// TransportError wraps the underlying network error. It matches
// ErrTransport and unwraps to the cause, so context cancellation stays
// detectable with errors.Is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ErrDecode matches every 2xx reply whose body could not be read as the
// expected JSON.
var ErrDecode = errors.New("unexpected response")

// DecodeError wraps the JSON error of a reply that could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return e.Op + ": unmarshal response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// User facing banner texts.
const (
	MsgSessionExpired = "Unauthorized. Please log in again."
	MsgNetwork        = "Network error. Please check your connection and try again."
	MsgBadResponse    = "Unexpected response from the server. Please try again later."
)

// Message renders err as the banner text shown to the user.
func Message(err error) string {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return MsgSessionExpired
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, ErrTransport):
		return MsgNetwork
	case errors.Is(err, ErrDecode):
		return MsgBadResponse
	default:
		return err.Error()
	}
}
