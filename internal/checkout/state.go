package checkout

import "fmt"

// State is a step of a single checkout attempt.
type State int

const (
	Idle State = iota
	Validating
	Reserving
	Committing
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Reserving:
		return "reserving"
	case Committing:
		return "committing"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Committing can abort too: the order insert and cart delete run inside the
// same store transaction, so their failure rolls everything back.
var transitions = map[State][]State{
	Idle:       {Validating},
	Validating: {Reserving, Aborted},
	Reserving:  {Committing, Aborted},
	Committing: {Done, Aborted},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}

// CanTransitionTo reports whether next directly follows s.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// machine tracks the state of one checkout and records the path taken.
type machine struct {
	state State
	path  []State
}

func newMachine() *machine {
	return &machine{state: Idle, path: []State{Idle}}
}

func (m *machine) to(next State) error {
	if !m.state.CanTransitionTo(next) {
		return fmt.Errorf("checkout: illegal transition %s -> %s", m.state, next)
	}
	m.state = next
	m.path = append(m.path, next)
	return nil
}

// abort moves to Aborted from wherever the attempt stopped. It is a no-op
// once the machine is terminal.
func (m *machine) abort() {
	if m.state.Terminal() {
		return
	}
	if m.state == Idle {
		m.state = Validating
		m.path = append(m.path, Validating)
	}
	m.state = Aborted
	m.path = append(m.path, Aborted)
}

// rewind returns to Validating for a retried store transaction. The request
// itself was validated already, so the retry resumes at the cart load.
func (m *machine) rewind() {
	if m.state == Validating {
		return
	}
	m.state = Validating
	m.path = append(m.path, Validating)
}
