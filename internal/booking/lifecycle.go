package booking

import "errors"

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// transitions is the system-driven lifecycle:
// pending -> {confirmed, paid} -> completed, any non-terminal -> cancelled.
// cancelled and completed are terminal.
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusPaid: true, StatusCancelled: true},
	StatusConfirmed: {StatusCompleted: true, StatusCancelled: true},
	StatusPaid:      {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the strict machine allows from -> to.
// The administrative override path (Service.AdminSetStatus) deliberately
// bypasses this table; trusted operators correct real-world state.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether no system-driven transition leaves the status.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}
