/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package booking

import (
	"errors"
	"fmt"
	"time"
)

// MaxSlotDuration caps a single reservation at one day.
const MaxSlotDuration = 24 * time.Hour

var (
	// ErrInvalidTime indicates a supplied instant is not a well-formed point in time.
	ErrInvalidTime = errors.New("booking: invalid time")
	// ErrSlotOrdering indicates start is not strictly before end.
	ErrSlotOrdering = errors.New("booking: slot start must be before end")
	// ErrSlotDuration indicates the slot exceeds the maximum duration.
	ErrSlotDuration = errors.New("booking: slot exceeds maximum duration")
)

// TimeSlot is a half-open occupancy interval [Start, End).
// Values are immutable after construction; all mutation-free predicates below
// assume the slot was built through NewTimeSlot.
type TimeSlot struct {
	start time.Time
	end   time.Time
}

// NewTimeSlot validates and constructs a slot.
func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	if start.IsZero() || end.IsZero() {
		return TimeSlot{}, ErrInvalidTime
	}
	if !start.Before(end) {
		return TimeSlot{}, fmt.Errorf("%w: start=%s end=%s", ErrSlotOrdering, start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano))
	}
	if end.Sub(start) > MaxSlotDuration {
		return TimeSlot{}, fmt.Errorf("%w: %s", ErrSlotDuration, end.Sub(start))
	}
	return TimeSlot{start: start, end: end}, nil
}

// Start returns the inclusive lower bound.
func (s TimeSlot) Start() time.Time { return s.start }

// End returns the exclusive upper bound.
func (s TimeSlot) End() time.Time { return s.end }

// Duration returns End - Start.
func (s TimeSlot) Duration() time.Duration { return s.end.Sub(s.start) }

// Equal reports whether both endpoints match exactly.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.start.Equal(other.start) && s.end.Equal(other.end)
}

// Before reports whether s starts strictly before other.
// Ordering predicates compare start only: two slots sharing a start but not an
// end are simultaneously BeforeOrEqual and AfterOrEqual each other. This is a
// preorder, not a total order; do not use it to key a sorted structure.
func (s TimeSlot) Before(other TimeSlot) bool {
	return s.start.Before(other.start)
}

// After reports whether s starts strictly after other.
func (s TimeSlot) After(other TimeSlot) bool {
	return s.start.After(other.start)
}

// BeforeOrEqual reports whether s does not start after other.
func (s TimeSlot) BeforeOrEqual(other TimeSlot) bool {
	return !s.start.After(other.start)
}

// AfterOrEqual reports whether s does not start before other.
func (s TimeSlot) AfterOrEqual(other TimeSlot) bool {
	return !s.start.Before(other.start)
}

// Contains reports half-open membership: Start <= instant < End.
func (s TimeSlot) Contains(instant time.Time) bool {
	return !instant.Before(s.start) && instant.Before(s.end)
}

// Overlaps reports whether the two half-open intervals intersect.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	// s starts before other ends AND s ends after other starts
	return s.start.Before(other.end) && s.end.After(other.start)
}

// String renders the slot for logs and bot replies.
func (s TimeSlot) String() string {
	return fmt.Sprintf("[%s, %s)", s.start.Format(time.RFC3339), s.end.Format(time.RFC3339))
}
