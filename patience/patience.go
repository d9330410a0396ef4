// Package patience implements the deadline/cancellation policies a stream
// consults between retries: how long to wait for a handle to become
// readable or writable before giving up.
//
// It is the Go counterpart of up_stream.hpp/up_stream.cpp's stream::await
// hierarchy (await, steady_await, deadline_await, infinite_await). The
// portable poll-based waiting loop lives here; the platform-specific
// timer backing Deadline is split across patience_linux.go (timerfd, the
// original's own mechanism) and patience_other.go (a ppoll-equivalent
// fallback for non-Linux targets).
package patience

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
)

// Operation names which readiness a Patience is asked to wait for.
type Operation int

const (
	Read Operation = iota
	Write
)

func (op Operation) String() string {
	if op == Write {
		return "write"
	}
	return "read"
}

// Patience is consulted by a stream's retry loop every time an engine
// reports ErrUnreadable or ErrUnwritable: it blocks until handle is ready
// for op, or returns a Timeout Fault if its policy's deadline elapses
// first.
type Patience interface {
	Wait(handle engine.NativeHandle, op Operation) error
}

// doPoll blocks until handle is ready for op or timeoutMillis elapses
// (-1 blocks forever), retrying transparently across EINTR the way
// up_stream.cpp's do_poll does. It reports whether the wait timed out.
func doPoll(handle engine.NativeHandle, op Operation, timeoutMillis int) (timedOut bool, err error) {
	var events int16 = unix.POLLIN
	if op == Write {
		events = unix.POLLOUT
	}
	fds := []unix.PollFd{{Fd: int32(handle), Events: events}}
	deadline := time.Time{}
	remaining := timeoutMillis
	if timeoutMillis >= 0 {
		deadline = time.Now().Add(time.Duration(timeoutMillis) * time.Millisecond)
	}
	for {
		n, err := unix.Poll(fds, remaining)
		if err == unix.EINTR {
			if timeoutMillis >= 0 {
				remaining = int(time.Until(deadline) / time.Millisecond)
				if remaining < 0 {
					remaining = 0
				}
			}
			continue
		}
		if err != nil {
			return false, insight.Wrap(err, insight.Runtime, "patience-poll-failed").With("op", op.String())
		}
		return n == 0, nil
	}
}

// Infinite never times out; it is the Go counterpart of infinite_await.
type Infinite struct{}

func (Infinite) Wait(handle engine.NativeHandle, op Operation) error {
	_, err := doPoll(handle, op, -1)
	return err
}

// Steady waits until a caller-owned "now" reference reaches deadline,
// mirroring steady_await: Now is re-read on every retry, so an external
// clock (a fake clock in tests, or a shared monotonic snapshot across
// several streams) governs how much time has actually elapsed.
type Steady struct {
	Now      *time.Time
	Deadline time.Time
}

// NewSteady mirrors steady_await's duration constructor, anchoring the
// deadline to *now plus duration.
func NewSteady(now *time.Time, duration time.Duration) *Steady {
	return &Steady{Now: now, Deadline: now.Add(duration)}
}

func (s *Steady) Wait(handle engine.NativeHandle, op Operation) error {
	remaining := s.Deadline.Sub(*s.Now)
	if remaining <= 0 {
		return insight.New(insight.Timeout, "patience-deadline-elapsed").With("op", op.String())
	}
	timedOut, err := doPoll(handle, op, int(remaining/time.Millisecond))
	*s.Now = time.Now()
	if err != nil {
		return err
	}
	if timedOut {
		return insight.New(insight.Timeout, "patience-deadline-elapsed").With("op", op.String())
	}
	return nil
}
