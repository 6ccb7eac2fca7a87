/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package booking

// Status is the coarse occupancy state of a machine.
type Status string

const (
	StatusBusy Status = "busy"
	StatusIdle Status = "idle"
)

// Machine is a named, independently schedulable resource owning exactly one
// schedule. IDs are caller-assigned; uniqueness is the registry's concern.
type Machine struct {
	id       int64
	name     string
	schedule *Schedule
}

// NewMachine creates a machine with an empty schedule.
func NewMachine(id int64, name string, now Clock) *Machine {
	return &Machine{
		id:       id,
		name:     name,
		schedule: NewSchedule(now),
	}
}

// ID returns the caller-assigned identifier.
func (m *Machine) ID() int64 { return m.id }

// Name returns the display name.
func (m *Machine) Name() string { return m.name }

// Schedule returns the owned schedule.
func (m *Machine) Schedule() *Schedule { return m.schedule }

// AddSlot forwards to the schedule's admission control.
func (m *Machine) AddSlot(slot TimeSlot) bool {
	return m.schedule.Add(slot)
}

// RemoveSlot forwards to the schedule.
func (m *Machine) RemoveSlot(slot TimeSlot) bool {
	return m.schedule.Remove(slot)
}

// Status derives busy/idle from the schedule.
func (m *Machine) Status() Status {
	if m.schedule.IsBusy() {
		return StatusBusy
	}
	return StatusIdle
}
