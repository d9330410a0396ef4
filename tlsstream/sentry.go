package tlsstream

import (
	"sync"

	"github.com/nosid-go/upstream/internal/insight"
)

// state tracks a tlsEngine's reentrancy state, mirroring tls_stream's
// state enum.
type state uint8

const (
	stateGood state = iota
	stateBad
	stateReadInProgress
	stateWriteInProgress
	stateShutdownInProgress
	stateShutdownCompleted
)

// sentry guards a tlsEngine against reentrant calls: two operations racing
// on the same OpenSSL-like state machine silently corrupt it, so entering a
// sentry from the wrong state is a programming-error Fault, not something
// to retry past.
//
// The original uses a spinning atomic_flag because OpenSSL's calls are
// expected to return quickly; Go's runtime-integrated sync.Mutex gives the
// same mutual exclusion without busy-waiting a core, which is the better
// default absent a measured reason to spin.
type sentry struct {
	mu    sync.Mutex
	value state
}

func newSentry() *sentry { return &sentry{value: stateGood} }

// enter transitions the sentry from expected to entering, raising an
// already-shutdown or runtime Fault if the current state does not match.
func (s *sentry) enter(expected, entering state) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == stateShutdownCompleted {
		return insight.New(insight.AlreadyShutdown, "tls-already-shutdown")
	}
	if s.value != expected {
		return insight.New(insight.Runtime, "tls-bad-state").
			With("expected", expected).With("actual", s.value)
	}
	s.value = entering
	return nil
}

// leave transitions the sentry to final, regardless of the state it was
// entered with; callers pass stateBad on the error path.
func (s *sentry) leave(final state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = final
}

func (s *sentry) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
