// Package gesture turns pointer button and motion events into the
// single-contact touch events expected by touch-only sinks.
package gesture

import (
	"errors"
	"math/bits"
)

// MaxButtons is the capacity of a ButtonSet.
const MaxButtons = 30

// ErrButtonRange is returned for a button index outside [0, MaxButtons).
var ErrButtonRange = errors.New("gesture: button index out of range")

// ButtonSet is a bounded set of held button indices.
type ButtonSet uint32

// Set adds button i to the set.
func (s *ButtonSet) Set(i int) error {
	if i < 0 || i >= MaxButtons {
		return ErrButtonRange
	}
	*s |= 1 << uint(i)
	return nil
}

// Clear removes button i from the set.
func (s *ButtonSet) Clear(i int) error {
	if i < 0 || i >= MaxButtons {
		return ErrButtonRange
	}
	*s &^= 1 << uint(i)
	return nil
}

// Has reports whether button i is held.
func (s ButtonSet) Has(i int) bool {
	if i < 0 || i >= MaxButtons {
		return false
	}
	return s&(1<<uint(i)) != 0
}

// Empty reports whether no button is held.
func (s ButtonSet) Empty() bool {
	return s == 0
}

// Len returns the number of held buttons.
func (s ButtonSet) Len() int {
	return bits.OnesCount32(uint32(s))
}
