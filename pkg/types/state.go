package types

// State is the outcome of a reconciliation step. Every step starts UNKNOWN,
// inspects live state (CHECKED) and ends in one of the terminal states.
type State string

const (
	StateUnknown State = "unknown"
	StateChecked State = "checked"
	StateInSync  State = "in-sync"
	StatePatched State = "patched"
	StateFailed  State = "failed"
)

// IsTerminal reports whether the state ends a reconciliation step
func (s State) IsTerminal() bool {
	switch s {
	case StateInSync, StatePatched, StateFailed:
		return true
	}
	return false
}

// Changed reports whether the step modified the system
func (s State) Changed() bool {
	return s == StatePatched
}

// Merge combines the outcome of two steps on the same target. Failure wins,
// then any change.
func (s State) Merge(other State) State {
	switch {
	case s == StateFailed || other == StateFailed:
		return StateFailed
	case s == StatePatched || other == StatePatched:
		return StatePatched
	case s == StateInSync && other == StateInSync:
		return StateInSync
	case s.IsTerminal():
		return s
	}
	return other
}
