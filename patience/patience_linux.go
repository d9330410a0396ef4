//go:build linux

package patience

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
)

// Deadline waits until an absolute point in time, backed by a Linux
// timerfd the way deadline_await::impl is: the kernel tracks the
// remaining time instead of this process recomputing it on every retry.
type Deadline struct {
	fd int
}

// NewDeadline arms a monotonic-clock timerfd expiring at deadline.
func NewDeadline(deadline time.Time) (*Deadline, error) {
	return newDeadlineFd(unix.CLOCK_MONOTONIC, time.Until(deadline))
}

// NewDeadlineFromNow arms a monotonic-clock timerfd expiring after d.
func NewDeadlineFromNow(d time.Duration) (*Deadline, error) {
	return newDeadlineFd(unix.CLOCK_MONOTONIC, d)
}

func newDeadlineFd(clockid int, d time.Duration) (*Deadline, error) {
	fd, err := unix.TimerfdCreate(clockid, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, insight.Wrap(err, insight.Runtime, "deadline-timer-creation-error")
	}
	if d < 0 {
		d = 0
	}
	spec := &unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		return nil, insight.Wrap(err, insight.Runtime, "deadline-timer-set-failed")
	}
	return &Deadline{fd: fd}, nil
}

// Close releases the underlying timerfd.
func (d *Deadline) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *Deadline) Wait(handle engine.NativeHandle, op Operation) error {
	var events int16 = unix.POLLIN
	if op == Write {
		events = unix.POLLOUT
	}
	fds := []unix.PollFd{
		{Fd: int32(handle), Events: events},
		{Fd: int32(d.fd), Events: unix.POLLIN},
	}
	for {
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return insight.Wrap(err, insight.Runtime, "patience-poll-failed").With("op", op.String())
		}
		if n == 0 {
			continue
		}
		if fds[1].Revents != 0 {
			return insight.New(insight.Timeout, "patience-deadline-elapsed").With("op", op.String())
		}
		return nil
	}
}
