// Package formstate gates the citizen report wizard: which actions are legal
// at each step. It holds no report data; the caller keeps the draft.
package formstate

import (
	"log"
	"sync"
)

// State is a wizard step
type State string

const (
	Initial           State = "INITIAL"
	LocationConfirmed State = "LOCATION_CONFIRMED"
	FilesSelected     State = "FILES_SELECTED"
	Submitting        State = "SUBMITTING"
	Completed         State = "COMPLETED"
	Error             State = "ERROR"
)

// Event is a user action (or submission outcome) fed to the machine
type Event string

const (
	ConfirmLocation Event = "confirmLocation"
	SelectFiles     Event = "selectFiles"
	Submit          Event = "submit"
	Reset           Event = "reset"

	// Succeed and Fail close a submission. They only act on Submitting.
	Succeed Event = "succeed"
	Fail    Event = "fail"
)

// States lists every state; Events lists every event.
var (
	States = []State{Initial, LocationConfirmed, FilesSelected, Submitting, Completed, Error}
	Events = []Event{ConfirmLocation, SelectFiles, Submit, Reset, Succeed, Fail}
)

// transitions holds every legal move. Anything missing is a no-op.
var transitions = map[State]map[Event]State{
	Initial: {
		ConfirmLocation: LocationConfirmed,
	},
	LocationConfirmed: {
		SelectFiles: FilesSelected,
		Submit:      Submitting,
		Reset:       Initial,
	},
	FilesSelected: {
		Submit: Submitting,
		Reset:  Initial,
	},
	Submitting: {
		Reset:   Initial,
		Succeed: Completed,
		Fail:    Error,
	},
	Completed: {
		ConfirmLocation: LocationConfirmed,
		SelectFiles:     FilesSelected,
		Reset:           Initial,
	},
	Error: {
		ConfirmLocation: LocationConfirmed,
		SelectFiles:     FilesSelected,
		Reset:           Initial,
	},
}

// Next returns the state reached from s on e. Unlisted pairs return s unchanged.
func Next(s State, e Event) State {
	if next, ok := transitions[s][e]; ok {
		return next
	}
	return s
}

// Allowed reports whether e moves the machine out of s
func Allowed(s State, e Event) bool {
	_, ok := transitions[s][e]
	return ok
}

// Machine tracks the current wizard step. Safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a machine in the Initial state
func NewMachine() *Machine {
	return &Machine{state: Initial}
}

// State returns the current step
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies e and reports the states before and after
func (m *Machine) Fire(e Event) (from, to State, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from = m.state
	to = Next(from, e)
	if !Allowed(from, e) {
		log.Printf("[form] action %s ignored in %s", e, from)
		return from, to, false
	}
	m.state = to
	log.Printf("[form] %s -> %s", from, to)
	return from, to, true
}
