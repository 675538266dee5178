package asr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies session failures.
type ErrorKind int

const (
	// ErrorKindUnknown covers failures not attributable to a specific cause.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindConnection means the transport could not be established.
	ErrorKindConnection
	// ErrorKindTransport means a send or receive failed (or timed out)
	// mid-session.
	ErrorKindTransport
	// ErrorKindDecode means a received frame was malformed.
	ErrorKindDecode
	// ErrorKindRemote means the service reported a non-success status; the
	// service's code is carried alongside.
	ErrorKindRemote
)

// String returns the lower-case label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConnection:
		return "connection"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindDecode:
		return "decode"
	case ErrorKindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// SessionError is the failure result of one recognition session. State names
// the session state the failure arose in, so the origin of an error is
// always attributable. Code is the service status for ErrorKindRemote.
type SessionError struct {
	Kind  ErrorKind
	State string
	Code  uint32
	Err   error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Kind == ErrorKindRemote {
		if e.Err != nil {
			return fmt.Sprintf("asr session failed in state %s: remote code %d: %v", e.State, e.Code, e.Err)
		}
		return fmt.Sprintf("asr session failed in state %s: remote code %d", e.State, e.Code)
	}
	return fmt.Sprintf("asr session failed in state %s: %s error: %v", e.State, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or ErrorKindUnknown when err is not
// a SessionError.
func KindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKindUnknown
}

// RemoteCode returns the service status code carried by err, if any.
func RemoteCode(err error) (uint32, bool) {
	var se *SessionError
	if errors.As(err, &se) && se.Kind == ErrorKindRemote {
		return se.Code, true
	}
	return 0, false
}
