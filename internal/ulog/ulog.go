// Package ulog is the teacher-style logging facade used throughout this
// module: a handful of package-level Debugf/Infof/Errorf functions that take
// a "subject" (whatever produced the line — an endpoint, a connection, a
// context) as their first argument, the way backend/local's fadvise.go calls
// fs.Debugf(f.o, "fadvise sequential failed on file descriptor %d: %s", f.fd, err).
//
// The subject is attached as a structured zerolog field rather than
// interpolated into the message string, so a line keeps both a readable
// message and queryable structure — the property the original's up::fabric
// gave to exceptions, carried here into ordinary log output too.
package ulog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger()

// SetOutput redirects subsequent log output, primarily for tests that want
// to assert on emitted lines.
func SetOutput(w zerolog.ConsoleWriter) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

func subjectField(e *zerolog.Event, subject any) *zerolog.Event {
	if subject == nil {
		return e
	}
	switch v := subject.(type) {
	case error:
		return e.Str("subject", v.Error())
	case interface{ String() string }:
		return e.Str("subject", v.String())
	default:
		return e.Interface("subject", v)
	}
}

// Debugf logs a debug-level diagnostic attributed to subject.
func Debugf(subject any, format string, args ...any) {
	subjectField(logger.Debug(), subject).Msgf(format, args...)
}

// Infof logs an info-level diagnostic attributed to subject.
func Infof(subject any, format string, args ...any) {
	subjectField(logger.Info(), subject).Msgf(format, args...)
}

// Errorf logs an error-level diagnostic attributed to subject.
func Errorf(subject any, format string, args ...any) {
	subjectField(logger.Error(), subject).Msgf(format, args...)
}
