package server

import (
	"sync"

	"github.com/google/uuid"
)

// State is the caller-facing conversation state. The pipeline itself is
// stateless; this tracker lives entirely at the boundary.
type State string

const (
	StateIdle       State = "idle"
	StateMisaligned State = "misaligned"
	StateAligned    State = "aligned"
)

// SessionTracker applies alignment verdicts to per-session state:
// any misaligned verdict moves to misaligned; an aligned verdict moves to
// aligned only from misaligned, which marks the violation resolved.
// Remaining idle is distinct from becoming aligned.
type SessionTracker struct {
	mu     sync.Mutex
	states map[uuid.UUID]State
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		states: make(map[uuid.UUID]State),
	}
}

// Apply transitions the session on a verdict. It returns the new state and
// whether this verdict resolved a prior violation.
func (t *SessionTracker) Apply(id uuid.UUID, aligned bool) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, ok := t.states[id]
	if !ok {
		prior = StateIdle
	}

	if !aligned {
		t.states[id] = StateMisaligned
		return StateMisaligned, false
	}

	if prior == StateMisaligned {
		t.states[id] = StateAligned
		return StateAligned, true
	}

	return prior, false
}

// Get returns the current state of a session.
func (t *SessionTracker) Get(id uuid.UUID) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.states[id]; ok {
		return s
	}
	return StateIdle
}
