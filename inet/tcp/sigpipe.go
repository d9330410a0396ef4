package tcp

import (
	"os/signal"
	"syscall"
)

// The original engine passes MSG_NOSIGNAL to every send/sendmsg call so a
// write to a peer that already reset the connection returns EPIPE instead
// of raising SIGPIPE. Go's plain Read/Write syscalls have no such flag, so
// the process-wide equivalent is to stop the default SIGPIPE disposition
// from tearing the process down; EPIPE still surfaces through the normal
// error return.
func init() {
	signal.Ignore(syscall.SIGPIPE)
}
