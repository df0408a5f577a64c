package sales

import "errors"

// ErrInvalidTransition is returned when a status change violates the
// sale state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyCanceled is returned when cancellation is attempted on a sale
// that is already CANCELED.
var ErrAlreadyCanceled = errors.New("sale already canceled")

// transitions is the closed set of allowed forward edges. A sale only
// moves along these edges or to CANCELED; it never moves backward.
var transitions = map[Status][]Status{
	StatusReserved:      {StatusCodeGenerated, StatusCanceled},
	StatusCodeGenerated: {StatusPaid, StatusCanceled},
	StatusPaid:          {StatusPickedUp},
	StatusPickedUp:      {},
	StatusCanceled:      {},
}

// CanTransition reports whether moving from one status to another is
// permitted, as ErrInvalidTransition or nil.
func CanTransition(from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// Cancelable reports whether a sale in the given status may still be
// canceled. PAID and PICKED_UP are deliberately excluded: once payment is
// confirmed, undoing the sale requires manual intervention.
func Cancelable(status Status) bool {
	return status == StatusReserved || status == StatusCodeGenerated
}
