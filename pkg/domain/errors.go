package domain

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session closed")

// ErrSessionFailed is returned when a session that previously timed out or lost its
// process is used again.
var ErrSessionFailed = errors.New("session failed")

// ErrMissingDecisionBlock is returned when model output has no fenced decision block.
var ErrMissingDecisionBlock = errors.New("no decision block found")

// TransportError reports process spawn, exit or timeout failures. It is fatal to the
// session that produced it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports malformed or out-of-sequence messages. It is fatal to the session.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DecodeError reports a missing or unparseable decision block.
// Raw keeps the model output for diagnostics.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode decision: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err wraps a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
