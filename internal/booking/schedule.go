/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package booking

import (
	"errors"
	"sync"
	"time"
)

// ErrNoUpcoming indicates no slot starts after the current instant, so there is
// no upcoming busy slot and no gap before one. A slot already in progress with
// nothing scheduled after it also yields ErrNoUpcoming from NextFreeSlot: the
// schedule does not report "free forever after the current slot" (known
// limitation, kept deliberately).
var ErrNoUpcoming = errors.New("booking: no upcoming slot")

// Clock samples the current instant. Injected so now-relative operations are
// deterministic under test.
type Clock func() time.Time

// Schedule holds the chronologically ordered, non-overlapping slots of a single
// machine. All operations hold the schedule mutex for their full duration.
type Schedule struct {
	mu    sync.Mutex
	now   Clock
	slots []TimeSlot
}

// NewSchedule creates an empty schedule. A nil clock defaults to time.Now.
func NewSchedule(now Clock) *Schedule {
	if now == nil {
		now = time.Now
	}
	return &Schedule{now: now}
}

// Add admits slot if it has not fully elapsed and overlaps nothing already
// scheduled, inserting it at its sorted position. Returns false without
// mutation when the slot is rejected.
func (s *Schedule) Add(slot TimeSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.End().Before(s.now()) {
		return false
	}
	for _, existing := range s.slots {
		if slot.Overlaps(existing) {
			return false
		}
	}

	// Linear insertion keeps ascending order by start. Admitted slots cannot
	// tie on start: equal starts always overlap and are rejected above.
	for i, existing := range s.slots {
		if slot.Before(existing) {
			s.slots = append(s.slots[:i], append([]TimeSlot{slot}, s.slots[i:]...)...)
			return true
		}
	}
	s.slots = append(s.slots, slot)
	return true
}

// Remove deletes the first slot value-equal to slot. Returns false when no
// such slot exists.
func (s *Schedule) Remove(slot TimeSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.slots {
		if existing.Equal(slot) {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return true
		}
	}
	return false
}

// IsFree reports whether slot would fit with no overlap. Unlike Add this is a
// pure what-if query: no past-time check, no mutation.
func (s *Schedule) IsFree(slot TimeSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.slots {
		if slot.Overlaps(existing) {
			return false
		}
	}
	return true
}

// NextBusySlot returns the earliest slot starting strictly after now. The
// second result is false when no such slot exists.
func (s *Schedule) NextBusySlot() (TimeSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, slot := range s.slots {
		if slot.Start().After(now) {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// NextFreeSlot returns the gap leading up to the next upcoming slot: from the
// end of the preceding slot (or from now when the upcoming slot is the first)
// until that slot starts. Returns ErrNoUpcoming when nothing starts after now.
// The synthetic gap is built through NewTimeSlot, so its invariants apply: a
// gap longer than MaxSlotDuration surfaces as ErrSlotDuration.
func (s *Schedule) NextFreeSlot() (TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i, slot := range s.slots {
		if !slot.Start().After(now) {
			continue
		}
		from := now
		if i > 0 {
			from = s.slots[i-1].End()
		}
		return NewTimeSlot(from, slot.Start())
	}
	return TimeSlot{}, ErrNoUpcoming
}

// IsBusy reports whether any slot contains the current instant.
func (s *Schedule) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, slot := range s.slots {
		if slot.Contains(now) {
			return true
		}
		if slot.Start().After(now) {
			break
		}
	}
	return false
}

// Len returns the number of scheduled slots.
func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Slots returns a snapshot copy in ascending start order.
func (s *Schedule) Slots() []TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TimeSlot, len(s.slots))
	copy(out, s.slots)
	return out
}
