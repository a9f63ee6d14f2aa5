// Package schedule derives bookable slots from a doctor's daily availability
// window. Everything here is pure: callers supply the window, the live
// appointments, and "now", and get the same answer every time.
package schedule

import "time"

// SlotDuration is the fixed length of every consultation slot.
const SlotDuration = 30 * time.Minute

// HorizonDays is how many consecutive days slots are projected over,
// starting today.
const HorizonDays = 4

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any instant.
// Back-to-back intervals ([9:00,9:30) and [9:30,10:00)) do not overlap.
// This is the only overlap test in the codebase; slot generation and booking
// re-validation both use it so the two sites cannot drift apart.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
