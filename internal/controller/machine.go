package controller

import (
	"errors"
	"fmt"
)

// Phase is the controller state.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitializing  Phase = "initializing"
	PhaseIdle          Phase = "idle"
	PhaseRendering     Phase = "rendering"
	PhaseError         Phase = "error"
)

// Event drives a Machine.
type Event string

const (
	EventActivate        Event = "activate"
	EventInitSucceeded   Event = "init-succeeded"
	EventInitFailed      Event = "init-failed"
	EventDispatch        Event = "dispatch"
	EventRenderSucceeded Event = "render-succeeded"
	EventRenderFailed    Event = "render-failed"
	// EventReset is accepted in every phase.
	EventReset Event = "reset"
)

// ErrInvalidTransition is returned by Fire for an event the current phase
// does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// transitions maps a phase and event to the next phase.
var transitions = map[Phase]map[Event]Phase{
	PhaseUninitialized: {
		EventActivate: PhaseInitializing,
	},
	PhaseInitializing: {
		EventInitSucceeded: PhaseIdle,
		EventInitFailed:    PhaseUninitialized,
	},
	PhaseIdle: {
		EventDispatch: PhaseRendering,
	},
	PhaseRendering: {
		// A newer dispatch supersedes the one in flight.
		EventDispatch:        PhaseRendering,
		EventRenderSucceeded: PhaseIdle,
		EventRenderFailed:    PhaseError,
	},
	PhaseError: {
		EventDispatch: PhaseRendering,
	},
}

// IsReady reports whether the renderer has been initialized.
func (p Phase) IsReady() bool {
	return p == PhaseIdle || p == PhaseRendering || p == PhaseError
}

// IsLoading reports whether work is in flight.
func (p Phase) IsLoading() bool {
	return p == PhaseInitializing || p == PhaseRendering
}

// Accepts reports whether ev is valid in p.
func (p Phase) Accepts(ev Event) bool {
	if ev == EventReset {
		return true
	}
	_, ok := transitions[p][ev]
	return ok
}

// Machine is the controller state machine. It is not safe for concurrent
// use; the Controller serializes access.
type Machine struct {
	phase Phase
}

// NewMachine returns a machine in PhaseUninitialized.
func NewMachine() *Machine {
	return &Machine{phase: PhaseUninitialized}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Fire applies ev. An invalid event leaves the phase unchanged.
func (m *Machine) Fire(ev Event) (Phase, error) {
	if ev == EventReset {
		m.phase = PhaseUninitialized
		return m.phase, nil
	}
	next, ok := transitions[m.phase][ev]
	if !ok {
		return m.phase, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, m.phase)
	}
	m.phase = next
	return next, nil
}
