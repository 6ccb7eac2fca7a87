/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package machines

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/machinepark/internal/booking"
	"github.com/friendsincode/machinepark/internal/events"
	"github.com/friendsincode/machinepark/internal/models"
	"github.com/friendsincode/machinepark/internal/telemetry"
)

var (
	// ErrNotFound indicates no machine with the requested id is registered.
	ErrNotFound = errors.New("machines: not found")
	// ErrAlreadyExists indicates the id is already taken.
	ErrAlreadyExists = errors.New("machines: id already registered")
)

// Registry owns the live machine set. The catalog (id, name) is persisted;
// schedules are in-memory only and start empty after every boot.
type Registry struct {
	db     *gorm.DB
	bus    *events.Bus
	clock  booking.Clock
	logger zerolog.Logger

	mu       sync.RWMutex
	machines map[int64]*booking.Machine
}

// NewRegistry creates an empty registry. db may be nil (no catalog
// persistence); bus may be nil (no event publishing).
func NewRegistry(db *gorm.DB, bus *events.Bus, clock booking.Clock, logger zerolog.Logger) *Registry {
	return &Registry{
		db:       db,
		bus:      bus,
		clock:    clock,
		logger:   logger.With().Str("component", "machine_registry").Logger(),
		machines: make(map[int64]*booking.Machine),
	}
}

// Load restores the persisted catalog into fresh machines with empty schedules.
func (r *Registry) Load(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	var rows []models.Machine
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return err
	}

	r.mu.Lock()
	for _, row := range rows {
		r.machines[row.ID] = booking.NewMachine(row.ID, row.Name, r.clock)
	}
	count := len(r.machines)
	r.mu.Unlock()

	r.logger.Info().Int("machines", count).Msg("machine catalog loaded")
	telemetry.MachinesRegistered.Set(float64(count))
	return nil
}

// Create registers a machine and persists its catalog row.
func (r *Registry) Create(ctx context.Context, id int64, name string) (*booking.Machine, error) {
	r.mu.Lock()
	if _, exists := r.machines[id]; exists {
		r.mu.Unlock()
		return nil, ErrAlreadyExists
	}
	machine := booking.NewMachine(id, name, r.clock)
	r.machines[id] = machine
	count := len(r.machines)
	r.mu.Unlock()

	if r.db != nil {
		row := models.Machine{ID: id, Name: name}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			r.mu.Lock()
			delete(r.machines, id)
			r.mu.Unlock()
			return nil, err
		}
	}

	r.logger.Info().Int64("machine_id", id).Str("name", name).Msg("machine registered")
	telemetry.MachinesRegistered.Set(float64(count))
	r.publish(events.EventMachineCreated, events.Payload{"machine_id": id, "name": name})
	return machine, nil
}

// Get returns the machine with the given id.
func (r *Registry) Get(id int64) (*booking.Machine, error) {
	r.mu.RLock()
	machine, ok := r.machines[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return machine, nil
}

// List returns all machines in ascending id order.
func (r *Registry) List() []*booking.Machine {
	r.mu.RLock()
	out := make([]*booking.Machine, 0, len(r.machines))
	for _, machine := range r.machines {
		out = append(out, machine)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// AddSlot runs admission control on the machine's schedule, recording the
// outcome in metrics and on the event bus. The boolean mirrors Schedule.Add.
func (r *Registry) AddSlot(id int64, slot booking.TimeSlot) (bool, error) {
	machine, err := r.Get(id)
	if err != nil {
		return false, err
	}

	// Sample now once, before admission. The elapsed check must see the same
	// instant the decision was made with, or a slot ending near now gets
	// labeled overlap.
	elapsed := slot.End().Before(r.now())

	if !machine.AddSlot(slot) {
		reason := "overlap"
		if elapsed {
			reason = "elapsed"
		}
		telemetry.SlotAdmissionsTotal.WithLabelValues("rejected", reason).Inc()
		r.logger.Debug().Int64("machine_id", id).Str("slot", slot.String()).Str("reason", reason).Msg("slot rejected")
		r.publish(events.EventSlotRejected, slotPayload(id, slot, events.Payload{"reason": reason}))
		return false, nil
	}

	telemetry.SlotAdmissionsTotal.WithLabelValues("accepted", "").Inc()
	r.logger.Debug().Int64("machine_id", id).Str("slot", slot.String()).Msg("slot admitted")
	r.publish(events.EventSlotAdded, slotPayload(id, slot, nil))
	return true, nil
}

// RemoveSlot removes a value-equal slot from the machine's schedule.
func (r *Registry) RemoveSlot(id int64, slot booking.TimeSlot) (bool, error) {
	machine, err := r.Get(id)
	if err != nil {
		return false, err
	}

	if !machine.RemoveSlot(slot) {
		return false, nil
	}

	r.logger.Debug().Int64("machine_id", id).Str("slot", slot.String()).Msg("slot removed")
	r.publish(events.EventSlotRemoved, slotPayload(id, slot, nil))
	return true, nil
}

// BusyCount reports how many machines are busy right now.
func (r *Registry) BusyCount() int {
	busy := 0
	for _, machine := range r.List() {
		if machine.Status() == booking.StatusBusy {
			busy++
		}
	}
	return busy
}

func (r *Registry) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now()
}

func (r *Registry) publish(eventType events.EventType, payload events.Payload) {
	if r.bus != nil {
		r.bus.Publish(eventType, payload)
	}
}

func slotPayload(id int64, slot booking.TimeSlot, extra events.Payload) events.Payload {
	payload := events.Payload{
		"machine_id": id,
		"starts_at":  slot.Start(),
		"ends_at":    slot.End(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
