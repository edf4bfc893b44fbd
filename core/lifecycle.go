package core

import (
	"fmt"
	"sync"
)

// State is the bot's lifecycle state.
type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// lifecycle is the state machine guarding registration and dispatch. The
// registry and middleware chain are unsynchronized once running; that is safe
// only because every mutation path checks the state here first, so mutation
// and concurrent dispatch never overlap.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

// State returns the current state.
func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// transition moves from exactly `from` to `to`.
func (l *lifecycle) transition(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return fmt.Errorf("cannot transition %s -> %s: %w (state %s)",
			from, to, stateErr(l.state), l.state)
	}
	l.state = to
	return nil
}

// requireNew guards registration-time mutation.
func (l *lifecycle) requireNew() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateNew {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, l.state)
	}
	return nil
}

func stateErr(s State) error {
	if s == StateNew {
		return ErrNotRunning
	}
	return ErrAlreadyStarted
}
