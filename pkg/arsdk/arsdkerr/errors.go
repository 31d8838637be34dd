// Package arsdkerr defines the shared error kinds used across the codec,
// transport, cmditf, handshake, and peer packages (§7).
package arsdkerr

import "fmt"

// Kind classifies an Error per spec §7. Names are illustrative; callers
// should match on Kind via errors.As, not by string.
type Kind int

const (
	InvalidArgument Kind = iota
	NotConnected
	NoResource
	Protocol
	Transient
	Timeout
	Canceled
	Busy
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case NotConnected:
		return "NotConnected"
	case NoResource:
		return "NoResource"
	case Protocol:
		return "Protocol"
	case Transient:
		return "Transient"
	case Timeout:
		return "Timeout"
	case Canceled:
		return "Canceled"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind and an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of kind k with a formatted message.
func New(k Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an Error of kind k around an existing cause.
func Wrap(k Kind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, a...), Err: err}
}
