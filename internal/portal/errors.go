package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrIncrementMissing means the counter rendered without a usable
	// increment button. It is transient.
	ErrIncrementMissing = errors.New("increment button not found")

	errLabelMissing    = errors.New("label text not present")
	errLabelBoxMissing = errors.New("label has no bounding box")
	errRowMissing      = errors.New("no row encloses label and stepper")
	errCounterMissing  = errors.New("no readable counter right of label")
	errValueMissing    = errors.New("counter shows no number")
	errSubmitMissing   = errors.New("submit control not present")
	errSubmitDisabled  = errors.New("submit control disabled")
)

// LocatorError reports that the stepper for a label could not be told
// apart from its surroundings before the deadline.
type LocatorError struct {
	Label  string
	Reason string
	Last   error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locate counter for %q: %s", e.Label, e.Reason)
}

func (e *LocatorError) Unwrap() error {
	return e.Last
}

// CounterErrorKind classifies stepper states that need an operator.
type CounterErrorKind int

const (
	CounterAboveTarget CounterErrorKind = iota + 1
	CounterUnreadable
	CounterStuck
)

func (k CounterErrorKind) String() string {
	switch k {
	case CounterAboveTarget:
		return "counter_above_target"
	case CounterUnreadable:
		return "counter_unreadable"
	case CounterStuck:
		return "counter_stuck"
	default:
		return "unknown"
	}
}

// CounterError is fatal to the cycle. A counter above target is never
// decremented automatically.
type CounterError struct {
	Kind   CounterErrorKind
	Value  int
	Target int
	// Readable is false when Value could not be read.
	Readable bool
}

func (e *CounterError) Error() string {
	switch e.Kind {
	case CounterAboveTarget:
		return fmt.Sprintf("counter already at %d, above target %d; reset it manually", e.Value, e.Target)
	case CounterUnreadable:
		return "counter value unreadable"
	case CounterStuck:
		if !e.Readable {
			return fmt.Sprintf("counter stuck below target %d, value unreadable", e.Target)
		}
		return fmt.Sprintf("counter stuck at %d, target %d", e.Value, e.Target)
	default:
		return "counter error"
	}
}

// AdvanceTimeout reports that the submit control never became clickable.
type AdvanceTimeout struct {
	Selector string
	LastErr  error
}

func (e *AdvanceTimeout) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("submit control %s never became clickable", e.Selector)
	}
	return fmt.Sprintf("submit control %s never became clickable: %v", e.Selector, e.LastErr)
}

func (e *AdvanceTimeout) Unwrap() error {
	return e.LastErr
}
