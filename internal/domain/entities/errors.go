package entities

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrIndexCorrupt = errors.New("index corrupt")
	ErrCapability   = errors.New("capability failure")
	ErrInput        = errors.New("invalid input")
)

// Error is a classified failure raised by a pipeline stage.
type Error struct {
	Kind error  // One of the Err* sentinels
	Op   string // Stage that failed, e.g. "retrieve"
	Err  error
}

// NewError classifies err under kind. A nil err is replaced by the kind itself.
func NewError(kind error, op string, err error) *Error {
	if err == nil {
		err = kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind error, op, format string, args ...any) *Error {
	return NewError(kind, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	if e.Err == e.Kind {
		return e.Op + ": " + e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// KindOf returns the sentinel kind of err, or nil if err is unclassified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []error{ErrInput, ErrNotFound, ErrIndexCorrupt, ErrCapability} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
