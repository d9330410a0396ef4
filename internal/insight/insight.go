// Package insight implements the structured-fault type every other package
// in this module raises instead of a bare error string.
//
// It is the Go counterpart of up::exception<Tag> / up::fabric from the
// original source: a fault carries a Tag identifying its category (see the
// constants below), a source location captured at the raise site, and a
// chain of nested key/value details for post-mortem logging. Wrap/Cause
// plumbing is borrowed from github.com/pkg/errors, the wrapping library the
// teacher reaches for throughout backend/ rather than hand-rolling its own.
package insight

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// Tag identifies the category of a Fault, mirroring the error categories of
// spec.md §7. Tags are compared with Is, never by matching message text.
type Tag string

const (
	// InvalidEndpoint signals that input could not be parsed into an
	// address or endpoint.
	InvalidEndpoint Tag = "invalid-endpoint"
	// InvalidService signals that a service name could not be resolved.
	InvalidService Tag = "invalid-service"
	// Unreadable is a transient engine-internal signal: retry after the
	// handle becomes readable. Never escapes the stream package.
	Unreadable Tag = "unreadable"
	// Unwritable is the write-side counterpart of Unreadable.
	Unwritable Tag = "unwritable"
	// Timeout is raised by a patience when its deadline elapses.
	Timeout Tag = "timeout"
	// AlreadyShutdown is engine-internal; the TLS engine raises it for
	// writes and shutdowns after its own shutdown has completed, and reports
	// a read in that state as a zero-byte read (EOF) instead.
	AlreadyShutdown Tag = "already-shutdown"
	// LockedFile signals that an advisory lock could not be acquired
	// without blocking.
	LockedFile Tag = "locked-file"
	// Runtime is the catch-all for unexpected system or library errors.
	Runtime Tag = "runtime"
	// OutOfRange signals bad cursor or index arithmetic.
	OutOfRange Tag = "out-of-range"
)

// Fault is the error type raised by every package in this module.
type Fault struct {
	Tag     Tag
	Message string
	Where   string // file:line of the raise site
	Details []Detail
	Cause   error
}

// Detail is one nested key/value pair attached to a Fault.
type Detail struct {
	Key   string
	Value any
}

// New raises a Fault with the given tag and message, capturing the caller's
// source location. Use With to attach structured details before returning it.
func New(tag Tag, message string, args ...any) *Fault {
	return &Fault{
		Tag:     tag,
		Message: fmt.Sprintf(message, args...),
		Where:   caller(2),
	}
}

// Wrap raises a Fault that chains an existing error as its cause, preserving
// the ability to unwrap back to it.
func Wrap(cause error, tag Tag, message string, args ...any) *Fault {
	return &Fault{
		Tag:     tag,
		Message: fmt.Sprintf(message, args...),
		Where:   caller(2),
		Cause:   errors.WithStack(cause),
	}
}

// With attaches a nested key/value detail and returns the same Fault, so
// call sites can chain: insight.New(...).With("fd", fd).With("endpoint", ep).
func (f *Fault) With(key string, value any) *Fault {
	f.Details = append(f.Details, Detail{Key: key, Value: value})
	return f
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", f.Tag, f.Message, f.Where)
	for _, d := range f.Details {
		msg += fmt.Sprintf(" %s=%v", d.Key, d.Value)
	}
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (f *Fault) Unwrap() error { return f.Cause }

// Is reports whether target is a bare Fault (no message, no cause) carrying
// the same tag, so callers can write
// errors.Is(err, &insight.Fault{Tag: insight.Timeout}) — or, more
// conveniently, use the Has helper below.
func (f *Fault) Is(target error) bool {
	other, ok := target.(*Fault)
	return ok && other.Tag == f.Tag && other.Message == "" && other.Cause == nil
}

// Has reports whether err is, or wraps, a Fault with the given tag.
func Has(err error, tag Tag) bool {
	for err != nil {
		if f, ok := err.(*Fault); ok {
			if f.Tag == tag {
				return true
			}
			err = f.Cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return false
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
