//go:build !linux

package patience

import (
	"time"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
)

// Deadline waits until an absolute point in time. On platforms without a
// timerfd equivalent this falls back to recomputing the remaining duration
// on every poll retry, the portable strategy up_stream.cpp's steady_await
// already uses for its own, caller-driven clock.
type Deadline struct {
	deadline time.Time
}

// NewDeadline arms a Deadline expiring at deadline.
func NewDeadline(deadline time.Time) (*Deadline, error) {
	return &Deadline{deadline: deadline}, nil
}

// NewDeadlineFromNow arms a Deadline expiring after d.
func NewDeadlineFromNow(d time.Duration) (*Deadline, error) {
	return &Deadline{deadline: time.Now().Add(d)}, nil
}

// Close is a no-op; there is no kernel resource to release on this
// platform.
func (d *Deadline) Close() error { return nil }

func (d *Deadline) Wait(handle engine.NativeHandle, op Operation) error {
	remaining := time.Until(d.deadline)
	if remaining <= 0 {
		return insight.New(insight.Timeout, "patience-deadline-elapsed").With("op", op.String())
	}
	timedOut, err := doPoll(handle, op, int(remaining/time.Millisecond))
	if err != nil {
		return err
	}
	if timedOut {
		return insight.New(insight.Timeout, "patience-deadline-elapsed").With("op", op.String())
	}
	return nil
}
