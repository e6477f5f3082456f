// ABOUTME: Error kinds reported by the playback engine
// ABOUTME: Pairs a kind tag with a human-readable message for bridge callers
package audiostream

import (
	"errors"
	"fmt"
)

// Sentinel errors for each kind; errors.Is matches an *Error against them
var (
	ErrInvalidConfig         = errors.New("invalid config")
	ErrNotInitialized        = errors.New("not initialized")
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrSinkSubmissionFailure = errors.New("sink submission failure")
	ErrBufferOverflow        = errors.New("buffer overflow")
)

// Kind tags an engine error
type Kind string

const (
	KindInvalidConfig         Kind = "INVALID_CONFIG"
	KindNotInitialized        Kind = "NOT_INITIALIZED"
	KindUnsupportedFormat     Kind = "UNSUPPORTED_FORMAT"
	KindSinkSubmissionFailure Kind = "SINK_SUBMISSION_FAILURE"
	KindBufferOverflow        Kind = "BUFFER_OVERFLOW"
	KindInternal              Kind = "INTERNAL"
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidConfig:
		return ErrInvalidConfig
	case KindNotInitialized:
		return ErrNotInitialized
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindSinkSubmissionFailure:
		return ErrSinkSubmissionFailure
	case KindBufferOverflow:
		return ErrBufferOverflow
	default:
		return nil
	}
}

// Error is the error type returned by Engine operations
type Error struct {
	Kind    Kind   // Error kind tag
	Message string // Human-readable message
	Err     error  // Underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of an engine error, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
