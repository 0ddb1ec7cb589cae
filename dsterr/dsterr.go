// Package dsterr defines the error-kind taxonomy shared by the device,
// dst, dstlog, repair and clean packages.
//
// The core never returns bare sentinel errors for flow-control decisions
// (e.g. "was this an access-denied failure, or a plain transport
// failure?") — callers use dsterr.Is or KindOf against the Kind
// constants instead.
package dsterr

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// NotSupported means the transport tag has no implementation for the
	// requested operation (e.g. conveyance DST on an NVMe device).
	NotSupported Kind = iota
	// BadParameter means the caller supplied a nonsensical input, such as
	// an error_limit of zero.
	BadParameter
	// TransportFailure means the underlying command failed and is
	// unrecoverable at this layer.
	TransportFailure
	// AccessDenied means the OS blocked the I/O.
	AccessDenied
	// MemoryFailure means a buffer allocation for a log or data transfer
	// failed.
	MemoryFailure
	// InProgress means a progress call observed percent < 100 and
	// status 0x0F.
	InProgress
	// Aborted means the test was aborted by the host, by an interrupting
	// reset, or by the watchdog.
	Aborted
	// Failure means the test completed with a non-success status.
	Failure
)

func (k Kind) String() string {
	switch k {
	case NotSupported:
		return "not supported"
	case BadParameter:
		return "bad parameter"
	case TransportFailure:
		return "transport failure"
	case AccessDenied:
		return "access denied"
	case MemoryFailure:
		return "memory failure"
	case InProgress:
		return "in progress"
	case Aborted:
		return "aborted"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, e.g. "send_dst: transport failure: SG_IO: input/output error".
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err is (or wraps) a *Error of the given Kind. Use it
// the way errors.Is is used: dsterr.Is(err, dsterr.AccessDenied).
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// New builds a *Error.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	if e, ok := asError(err); ok {
		return e.Kind, true
	}
	return 0, false
}

func asError(err error) (*Error, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
