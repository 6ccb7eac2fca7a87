/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/machinepark/internal/booking"
	"github.com/friendsincode/machinepark/internal/machines"
)

const usage = "commands: !machines (list machines), !when <id> (next reservation for a machine)"

// Responder answers the two fixed text commands the chat frontends send.
type Responder struct {
	registry *machines.Registry
	logger   zerolog.Logger
}

// NewResponder creates a command responder backed by the registry.
func NewResponder(registry *machines.Registry, logger zerolog.Logger) *Responder {
	return &Responder{
		registry: registry,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
}

// Handle answers a single message. Anything that is not one of the two known
// commands gets the usage line.
func (b *Responder) Handle(message string) string {
	fields := strings.Fields(strings.TrimSpace(message))
	if len(fields) == 0 {
		return usage
	}

	switch fields[0] {
	case "!machines":
		return b.listMachines()
	case "!when":
		if len(fields) != 2 {
			return usage
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return usage
		}
		return b.nextBusy(id)
	default:
		return usage
	}
}

func (b *Responder) listMachines() string {
	list := b.registry.List()
	if len(list) == 0 {
		return "no machines registered"
	}

	var sb strings.Builder
	for i, machine := range list {
		if i > 0 {
			sb.WriteByte('\n')
		}
		marker := "idle"
		if machine.Status() == booking.StatusBusy {
			marker = "BUSY"
		}
		fmt.Fprintf(&sb, "#%d %s [%s]", machine.ID(), machine.Name(), marker)
	}
	return sb.String()
}

func (b *Responder) nextBusy(id int64) string {
	machine, err := b.registry.Get(id)
	if err != nil {
		return fmt.Sprintf("machine %d is not registered", id)
	}

	slot, ok := machine.Schedule().NextBusySlot()
	if !ok {
		return fmt.Sprintf("%s has no upcoming reservation", machine.Name())
	}
	return fmt.Sprintf("%s is next reserved %s to %s",
		machine.Name(),
		slot.Start().Format(time.RFC3339),
		slot.End().Format(time.RFC3339))
}
