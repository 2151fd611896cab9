package workflows

import "fmt"

// StateMachine enforces transitions between named states
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine with the given allowed transitions
func NewStateMachine(transitions map[string][]string) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// NewReportSessionMachine returns the lifecycle of one report being edited
func NewReportSessionMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"new":       {"editing", "saved", "discarded"},
		"editing":   {"editing", "saved", "discarded"},
		"saved":     {"editing", "saved", "discarded"},
		"discarded": {},
	})
}

// CanTransition checks if a transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition returns an error when from -> to is not allowed
func (sm *StateMachine) Transition(from, to string) error {
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}
	return nil
}
