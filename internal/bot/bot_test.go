/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/machinepark/internal/booking"
	"github.com/friendsincode/machinepark/internal/machines"
)

var now = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *machines.Registry {
	t.Helper()
	return machines.NewRegistry(nil, nil, func() time.Time { return now }, zerolog.Nop())
}

func TestHandleUnknownCommand(t *testing.T) {
	responder := NewResponder(testRegistry(t), zerolog.Nop())

	for _, message := range []string{"", "hello", "!frobnicate", "!when", "!when not-a-number", "!when 1 2"} {
		if got := responder.Handle(message); got != usage {
			t.Errorf("Handle(%q) = %q, want usage line", message, got)
		}
	}
}

func TestHandleMachinesEmpty(t *testing.T) {
	responder := NewResponder(testRegistry(t), zerolog.Nop())

	if got := responder.Handle("!machines"); got != "no machines registered" {
		t.Errorf("Handle(!machines) = %q", got)
	}
}

func TestHandleMachinesListsBusyAndIdle(t *testing.T) {
	registry := testRegistry(t)
	responder := NewResponder(registry, zerolog.Nop())

	if _, err := registry.Create(context.Background(), 2, "lathe"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := registry.Create(context.Background(), 1, "press"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	slot, err := booking.NewTimeSlot(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewTimeSlot: %v", err)
	}
	if ok, err := registry.AddSlot(2, slot); err != nil || !ok {
		t.Fatalf("AddSlot: ok=%v err=%v", ok, err)
	}

	got := responder.Handle("!machines")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	if lines[0] != "#1 press [idle]" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "#2 lathe [BUSY]" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestHandleWhen(t *testing.T) {
	registry := testRegistry(t)
	responder := NewResponder(registry, zerolog.Nop())

	if _, err := registry.Create(context.Background(), 7, "mill"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := responder.Handle("!when 99"); got != "machine 99 is not registered" {
		t.Errorf("unknown id reply = %q", got)
	}
	if got := responder.Handle("!when 7"); got != "mill has no upcoming reservation" {
		t.Errorf("empty schedule reply = %q", got)
	}

	slot, err := booking.NewTimeSlot(now.Add(2*time.Hour), now.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("NewTimeSlot: %v", err)
	}
	if ok, err := registry.AddSlot(7, slot); err != nil || !ok {
		t.Fatalf("AddSlot: ok=%v err=%v", ok, err)
	}

	want := "mill is next reserved 2026-03-14T11:00:00Z to 2026-03-14T12:00:00Z"
	if got := responder.Handle("!when 7"); got != want {
		t.Errorf("Handle(!when 7) = %q, want %q", got, want)
	}
}
