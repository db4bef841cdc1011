package pageable

import (
	"errors"
	"fmt"
)

// TransportError is a failed page request.
//
// The sequencer never produces TransportErrors itself; transports do, and
// the sequencer returns whatever the transport returned unchanged.
type TransportError struct {
	// URL is the request URL.
	URL string

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, msg)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsTransportError returns true if err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// DecodeError reports a page body that could not be decoded.
type DecodeError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode page %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrNextLinkLoop is returned when a page's next-link repeats the request
// that produced it.
var ErrNextLinkLoop = errors.New("next link repeats the current request")
