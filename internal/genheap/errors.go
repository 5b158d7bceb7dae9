package genheap

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. ErrInitFailed marks fatal
// initialization failures: the embedding driver is expected to
// terminate, not retry. ErrOutOfMemory is the coordinator-level signal
// that every fallback tier has been exhausted.
var (
	ErrInitFailed        = errors.New("genheap: initialization failed")
	ErrOutOfMemory       = errors.New("genheap: out of memory")
	ErrPromotionFailed   = errors.New("genheap: promotion failed")
	ErrConfigUnsupported = errors.New("genheap: unsupported configuration")
)

// ErrorCode classifies heap errors.
type ErrorCode int

const (
	ErrorOutOfMemory       ErrorCode = iota // allocation could not be satisfied
	ErrorInvalidSize                        // invalid size argument
	ErrorReservationFailed                  // address-space reservation failed
	ErrorPromotionFailed                    // promotion reported failure
	ErrorConfigInvalid                      // configuration rejected
)

// String returns the string representation of an error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrorOutOfMemory:
		return "OutOfMemory"
	case ErrorInvalidSize:
		return "InvalidSize"
	case ErrorReservationFailed:
		return "ReservationFailed"
	case ErrorPromotionFailed:
		return "PromotionFailed"
	case ErrorConfigInvalid:
		return "ConfigInvalid"
	default:
		return fmt.Sprintf("Unknown(%d)", int(ec))
	}
}

// HeapError is a classified heap-management error.
type HeapError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *HeapError) Error() string {
	return fmt.Sprintf("genheap: %s: %s", e.Code, e.Message)
}

// Unwrap maps the code to its sentinel so callers can use errors.Is.
func (e *HeapError) Unwrap() error {
	switch e.Code {
	case ErrorOutOfMemory:
		return ErrOutOfMemory
	case ErrorReservationFailed, ErrorInvalidSize:
		return ErrInitFailed
	case ErrorPromotionFailed:
		return ErrPromotionFailed
	case ErrorConfigInvalid:
		return ErrConfigUnsupported
	default:
		return nil
	}
}
