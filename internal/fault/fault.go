// Package fault defines the error kinds shared by the LOD, export and bake
// operators.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an operator failure.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidTarget
	KindEmptySequence
	KindIndexOutOfRange
	KindHostOperationFailed
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInvalidTarget:
		return "InvalidTarget"
	case KindEmptySequence:
		return "EmptySequence"
	case KindIndexOutOfRange:
		return "IndexOutOfRange"
	case KindHostOperationFailed:
		return "HostOperationFailed"
	default:
		return "Unknown"
	}
}

var (
	// ErrInvalidTarget reports a wrong object type or a missing active object.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrEmptySequence reports an operation on a LOD list with no entries.
	ErrEmptySequence = errors.New("empty LOD sequence")
	// ErrIndexOutOfRange reports a bad LOD index.
	ErrIndexOutOfRange = errors.New("LOD index out of range")
	// ErrHostOperation is matched by every *HostError.
	ErrHostOperation = errors.New("host operation failed")
)

// HostError wraps a failure reported by the mesh kernel, an exporter or the
// bake engine. The host's message is kept verbatim.
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrHostOperation) true for any HostError.
func (e *HostError) Is(target error) bool {
	return target == ErrHostOperation
}

// Host wraps err as a HostError for op. A nil err returns nil.
func Host(op string, err error) error {
	if err == nil {
		return nil
	}
	var he *HostError
	if errors.As(err, &he) {
		return err
	}
	return &HostError{Op: op, Err: err}
}

// InvalidTarget returns an ErrInvalidTarget with a formatted reason.
func InvalidTarget(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTarget, fmt.Sprintf(format, args...))
}

// IndexOutOfRange returns an ErrIndexOutOfRange for index against length n.
func IndexOutOfRange(index, n int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, n)
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget
	case errors.Is(err, ErrEmptySequence):
		return KindEmptySequence
	case errors.Is(err, ErrIndexOutOfRange):
		return KindIndexOutOfRange
	case errors.Is(err, ErrHostOperation):
		return KindHostOperationFailed
	default:
		return KindUnknown
	}
}
