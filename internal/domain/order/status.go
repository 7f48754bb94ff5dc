package order

import "fmt"

// Status enumerates order lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// legalTransitions is the single source of truth for the order state
// machine. All status changes go through Transition; call sites never
// compare statuses ad hoc.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusInitiated, StatusCanceled},
	StatusInitiated: {StatusCompleted, StatusFailed},
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// CanTransition reports whether the edge s -> to is legal.
func (s Status) CanTransition(to Status) bool {
	for _, next := range legalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError is returned when a status change does not follow
// a legal state machine edge.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition %s -> %s", e.From, e.To)
}

// Transition validates and applies a status change on the order.
func (o *Order) Transition(to Status) error {
	if !o.Status.CanTransition(to) {
		return &IllegalTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	return nil
}
