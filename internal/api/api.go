/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/machinepark/internal/auth"
	"github.com/friendsincode/machinepark/internal/booking"
	"github.com/friendsincode/machinepark/internal/bot"
	"github.com/friendsincode/machinepark/internal/events"
	"github.com/friendsincode/machinepark/internal/machines"
	"github.com/friendsincode/machinepark/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	registry  *machines.Registry
	responder *bot.Responder
	bus       *events.Bus
	jwtSecret []byte
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(registry *machines.Registry, responder *bot.Responder, bus *events.Bus, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		registry:  registry,
		responder: responder,
		bus:       bus,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

type machineCreateRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type slotRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

type slotResponse struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type machineResponse struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Status booking.Status `json:"status"`
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/machines", func(r chi.Router) {
				r.Get("/", a.handleMachinesList)
				r.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleOperator)).Post("/", a.handleMachinesCreate)
				r.Route("/{machineID}", func(r chi.Router) {
					r.Get("/", a.handleMachineGet)
					r.Get("/status", a.handleMachineStatus)
					r.Route("/slots", func(sr chi.Router) {
						sr.Get("/", a.handleSlotsList)
						sr.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleOperator)).Post("/", a.handleSlotAdd)
						sr.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleOperator)).Delete("/", a.handleSlotRemove)
					})
					r.Get("/next-busy", a.handleNextBusy)
					r.Get("/next-free", a.handleNextFree)
					r.Post("/free-check", a.handleFreeCheck)
				})
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleMachinesList(w http.ResponseWriter, r *http.Request) {
	list := a.registry.List()
	out := make([]machineResponse, 0, len(list))
	for _, machine := range list {
		out = append(out, machineResponse{
			ID:     machine.ID(),
			Name:   machine.Name(),
			Status: machine.Status(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleMachinesCreate(w http.ResponseWriter, r *http.Request) {
	var req machineCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ID <= 0 || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id_and_name_required")
		return
	}

	machine, err := a.registry.Create(r.Context(), req.ID, req.Name)
	if errors.Is(err, machines.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "id_taken")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("create machine failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusCreated, machineResponse{
		ID:     machine.ID(),
		Name:   machine.Name(),
		Status: machine.Status(),
	})
}

func (a *API) handleMachineGet(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, machineResponse{
		ID:     machine.ID(),
		Name:   machine.Name(),
		Status: machine.Status(),
	})
}

func (a *API) handleMachineStatus(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": machine.ID(),
		"status":     machine.Status(),
	})
}

func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}

	slots := machine.Schedule().Slots()
	out := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotResponse{StartsAt: slot.Start(), EndsAt: slot.End()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSlotAdd(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}
	slot, ok := a.slotFromBody(w, r)
	if !ok {
		return
	}

	admitted, err := a.registry.AddSlot(machine.ID(), slot)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if !admitted {
		writeError(w, http.StatusConflict, "slot_rejected")
		return
	}

	writeJSON(w, http.StatusCreated, slotResponse{StartsAt: slot.Start(), EndsAt: slot.End()})
}

func (a *API) handleSlotRemove(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}
	slot, ok := a.slotFromBody(w, r)
	if !ok {
		return
	}

	removed, err := a.registry.RemoveSlot(machine.ID(), slot)
	if err != nil || !removed {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleNextBusy(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}

	slot, found := machine.Schedule().NextBusySlot()
	if !found {
		writeError(w, http.StatusNotFound, "no_upcoming")
		return
	}
	writeJSON(w, http.StatusOK, slotResponse{StartsAt: slot.Start(), EndsAt: slot.End()})
}

func (a *API) handleNextFree(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}

	gap, err := machine.Schedule().NextFreeSlot()
	if errors.Is(err, booking.ErrNoUpcoming) {
		writeError(w, http.StatusNotFound, "no_upcoming")
		return
	}
	if err != nil {
		// The gap itself violated slot invariants (e.g. wider than the
		// maximum slot duration). Surface it instead of guessing.
		writeError(w, http.StatusUnprocessableEntity, "gap_unrepresentable")
		return
	}
	writeJSON(w, http.StatusOK, slotResponse{StartsAt: gap.Start(), EndsAt: gap.End()})
}

func (a *API) handleFreeCheck(w http.ResponseWriter, r *http.Request) {
	machine, ok := a.machineFromURL(w, r)
	if !ok {
		return
	}
	slot, ok := a.slotFromBody(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": machine.ID(),
		"free":       machine.Schedule().IsFree(slot),
	})
}

// handleEvents upgrades to a WebSocket that streams bus events and answers bot
// commands sent as text frames.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{events.EventSlotAdded, events.EventSlotRemoved, events.EventHealth}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i := range subscribers {
			a.bus.Unsubscribe(eventTypes[i], subscribers[i])
		}
	}()

	// Reader goroutine feeds inbound text frames to the bot responder.
	replies := make(chan string, 4)
	go func() {
		defer close(replies)
		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if msgType != ws.MessageText {
				continue
			}
			select {
			case replies <- a.responder.Handle(string(data)):
			default:
			}
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case reply, open := <-replies:
			if !open {
				conn.Close(ws.StatusNormalClosure, "client gone")
				return
			}
			if err := a.writeEvent(ctx, conn, "bot.reply", events.Payload{"text": reply}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Error().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Error().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

// machineFromURL resolves {machineID} or writes the error response.
func (a *API) machineFromURL(w http.ResponseWriter, r *http.Request) (*booking.Machine, bool) {
	raw := chi.URLParam(r, "machineID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_machine_id")
		return nil, false
	}

	machine, err := a.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return machine, true
}

// slotFromBody decodes and validates the slot payload, mapping each
// construction failure to its own error code.
func (a *API) slotFromBody(w http.ResponseWriter, r *http.Request) (booking.TimeSlot, bool) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return booking.TimeSlot{}, false
	}

	start, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_starts_at")
		return booking.TimeSlot{}, false
	}
	end, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_ends_at")
		return booking.TimeSlot{}, false
	}

	slot, err := booking.NewTimeSlot(start, end)
	switch {
	case errors.Is(err, booking.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid_time")
		return booking.TimeSlot{}, false
	case errors.Is(err, booking.ErrSlotOrdering):
		writeError(w, http.StatusBadRequest, "slot_ordering")
		return booking.TimeSlot{}, false
	case errors.Is(err, booking.ErrSlotDuration):
		writeError(w, http.StatusBadRequest, "slot_duration")
		return booking.TimeSlot{}, false
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_slot")
		return booking.TimeSlot{}, false
	}
	return slot, true
}

func parseEventTypes(raw string) []events.EventType {
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
