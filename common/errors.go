package common

import (
	"fmt"
)

// ErrMalformedPayload is returned when a raw payload cannot be parsed as the
// declared structured type.
type ErrMalformedPayload struct {
	Payload string
	Cause   error
}

func (e ErrMalformedPayload) Error() string {
	return fmt.Sprintf("malformed payload %q: %v", e.Payload, e.Cause)
}

func (e ErrMalformedPayload) Unwrap() error {
	return e.Cause
}

// ErrUnsupportedQuery is returned when an ordering or filter view is not
// implemented. Callers get a loud failure instead of a silent no-op.
type ErrUnsupportedQuery struct {
	Filter string
}

func (e ErrUnsupportedQuery) Error() string {
	return fmt.Sprintf("unsupported query filter: %s", e.Filter)
}

// ErrTransportClosed is returned when an operation is attempted on a closed
// transport.
type ErrTransportClosed struct {
	Name string
}

func (e ErrTransportClosed) Error() string {
	return fmt.Sprintf("transport closed: %s", e.Name)
}

// ErrEngineClosed is returned when an operation is attempted on a disposed
// engine.
type ErrEngineClosed struct{}

func (e ErrEngineClosed) Error() string {
	return "engine closed"
}

// ErrInvalidMessage is returned when a decoded message is structurally
// invalid.
type ErrInvalidMessage struct {
	Message string
}

func (e ErrInvalidMessage) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Message)
}
