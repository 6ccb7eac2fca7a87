/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "machinepark_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "machinepark_api_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "machinepark_api_active_connections",
		Help: "Number of HTTP requests currently in flight.",
	})

	// APIWebSocketConnections tracks open event stream sockets.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "machinepark_api_websocket_connections",
		Help: "Number of open event stream WebSocket connections.",
	})

	// SlotAdmissionsTotal counts slot admission outcomes. The reason label is
	// empty for accepted slots and "overlap" or "elapsed" for rejections.
	SlotAdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "machinepark_slot_admissions_total",
		Help: "Slot admission decisions by outcome.",
	}, []string{"outcome", "reason"})

	// MachinesRegistered tracks the registry size.
	MachinesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "machinepark_machines_registered",
		Help: "Number of machines in the registry.",
	})

	// MachinesBusy tracks how many machines are currently occupied.
	MachinesBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "machinepark_machines_busy",
		Help: "Number of machines with a slot in progress.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
