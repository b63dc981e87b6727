package checkout

import "fmt"

type State string

const (
	Loading          State = "loading"
	Ready            State = "ready"
	Submitting       State = "submitting"
	Redirected       State = "redirected"
	OrderPlaced      State = "order-placed"
	ValidationFailed State = "validation-failed"
	SubmitFailed     State = "submit-failed"
)

var transitions = map[State][]State{
	Loading:          {Ready},
	Ready:            {Submitting},
	Submitting:       {Redirected, OrderPlaced, ValidationFailed, SubmitFailed},
	ValidationFailed: {Ready},
	SubmitFailed:     {Ready},
}

func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal states end the checkout page; the user leaves it.
func (s State) Terminal() bool { return s == Redirected || s == OrderPlaced }

type machine struct {
	state State
	trail []State
}

func newMachine() *machine { return &machine{state: Loading, trail: []State{Loading}} }

func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return fmt.Errorf("checkout: illegal transition %s -> %s", m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}
