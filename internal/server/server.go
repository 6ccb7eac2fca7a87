/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/machinepark/internal/api"
	"github.com/friendsincode/machinepark/internal/bot"
	"github.com/friendsincode/machinepark/internal/config"
	"github.com/friendsincode/machinepark/internal/db"
	"github.com/friendsincode/machinepark/internal/events"
	"github.com/friendsincode/machinepark/internal/machines"
	"github.com/friendsincode/machinepark/internal/telemetry"
)

// Server bundles the HTTP API and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	bus      *events.Bus
	registry *machines.Registry
	api      *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("machinepark-api"))
	router.Use(telemetry.MetricsMiddleware)

	// Skip the request timeout for WebSocket upgrades; event streams are
	// long-lived by design.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := s.initDependencies(); err != nil {
		return nil, err
	}

	s.configureRoutes()
	s.startBackgroundWorkers()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections manage their own deadlines
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	s.bus = events.NewBus()

	s.registry = machines.NewRegistry(s.db, s.bus, nil, s.logger)
	if err := s.registry.Load(context.Background()); err != nil {
		return fmt.Errorf("load machine catalog: %w", err)
	}

	responder := bot.NewResponder(s.registry, s.logger)
	s.api = api.New(s.registry, responder, s.bus, []byte(s.cfg.JWTSigningKey), s.logger)
	return nil
}

func (s *Server) configureRoutes() {
	s.api.Routes(s.router)
}

// startBackgroundWorkers runs periodic housekeeping: the busy gauge refresh
// and the health heartbeat on the event bus.
func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				busy := s.registry.BusyCount()
				telemetry.MachinesBusy.Set(float64(busy))
				s.bus.Publish(events.EventHealth, events.Payload{
					"machines": len(s.registry.List()),
					"busy":     busy,
				})
			}
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Registry exposes the machine registry.
func (s *Server) Registry() *machines.Registry {
	return s.registry
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket")
}
