package portal

import "github.com/maltedev/termin-watch/internal/dom"

// scorer picks one candidate: every filter must hold, then better breaks
// ties. Earlier candidates win when neither is better.
type scorer[T any] struct {
	filters []func(T) bool
	better  func(a, b T) bool
}

func (s scorer[T]) pick(cands []T) int {
	best := -1
next:
	for i, c := range cands {
		for _, keep := range s.filters {
			if !keep(c) {
				continue next
			}
		}
		if best < 0 || s.better(c, cands[best]) {
			best = i
		}
	}
	return best
}

// RowCandidate is a snapshot of one ancestor of the label.
type RowCandidate struct {
	ContainsLabel bool
	Buttons       int
	Box           *dom.Box
}

// SelectRow returns the index of the tightest ancestor that still holds the
// label and a stepper (two or more buttons), or -1. Ancestors taller than
// maxHeight wrap the whole list rather than one line item.
func SelectRow(cands []RowCandidate, maxHeight float64) int {
	return scorer[RowCandidate]{
		filters: []func(RowCandidate) bool{
			func(c RowCandidate) bool { return c.ContainsLabel },
			func(c RowCandidate) bool { return c.Buttons >= 2 },
			func(c RowCandidate) bool { return c.Box != nil && c.Box.Height <= maxHeight },
		},
		better: func(a, b RowCandidate) bool { return a.Box.Area() < b.Box.Area() },
	}.pick(cands)
}

// CounterCandidate is a snapshot of one container inside the row.
type CounterCandidate struct {
	Visible  bool
	Buttons  int
	Readable bool
	Value    int
	Box      *dom.Box
}

// SelectCounter returns the index of the rightmost visible stepper with a
// readable value that starts at or right of labelRight-tolerance, or -1.
// The current line's quantity is rendered as the rightmost cluster.
func SelectCounter(cands []CounterCandidate, labelRight, tolerance float64) int {
	return scorer[CounterCandidate]{
		filters: []func(CounterCandidate) bool{
			func(c CounterCandidate) bool { return c.Visible },
			func(c CounterCandidate) bool { return c.Buttons >= 2 },
			func(c CounterCandidate) bool { return c.Readable },
			func(c CounterCandidate) bool { return c.Box != nil && c.Box.X >= labelRight-tolerance },
		},
		better: func(a, b CounterCandidate) bool { return a.Box.X > b.Box.X },
	}.pick(cands)
}
