package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gripid/tracker-core/internal/auth"
)

// healthCheckTimeout bounds each dependency probe of /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Import uploads get the configured upload limit instead of the JSON one.
		r.Group(func(r chi.Router) {
			r.Use(bodySizeLimit(s.maxUploadBytes()))
			r.Use(s.authMiddleware)
			r.With(requirePermission(auth.PermImport)).Post("/import", s.handleImport)
		})

		r.Group(func(r chi.Router) {
			r.Use(bodySizeLimit(maxRequestBodySize))
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.With(requirePermission(auth.PermDeviceRead)).Get("/metrics", s.handleMetrics)

			r.Route("/devices", func(r chi.Router) {
				r.With(requirePermission(auth.PermDeviceRead)).Get("/", s.handleListDevices)
				r.With(requirePermission(auth.PermDeviceWrite)).Post("/", s.handleCreateDevice)
				r.With(requirePermission(auth.PermDeviceRead)).Get("/by-serial/{serial}", s.handleGetDeviceBySerial)

				r.Route("/{id}", func(r chi.Router) {
					r.With(requirePermission(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(requirePermission(auth.PermDeviceWrite)).Put("/", s.handleUpdateDevice)
					r.With(requirePermission(auth.PermDeviceDelete)).Delete("/", s.handleDeleteDevice)
				})
			})

			r.Route("/history", func(r chi.Router) {
				r.Use(requirePermission(auth.PermDeviceRead))
				r.Get("/", s.handleActivity)
				r.Get("/{serial}", s.handleGetHistory)
			})

			r.With(requirePermission(auth.PermExport)).Get("/export", s.handleExport)
			r.With(requirePermission(auth.PermDeviceWrite)).Post("/scan", s.handleScan)
			r.With(requirePermission(auth.PermMaintenance)).Post("/maintenance/reconcile", s.handleReconcile)
		})
	})

	return r
}

// handleHealth reports the server and dependency health. The database is
// required; MQTT and InfluxDB are reported when configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK

	probe := func(name string, check func(context.Context) error, required bool) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			if required {
				status = http.StatusServiceUnavailable
			}
			return
		}
		checks[name] = "ok"
	}

	if s.db != nil {
		probe("database", s.db.HealthCheck, true)
	}
	if s.mqtt != nil {
		probe("mqtt", s.mqtt.HealthCheck, false)
	}
	if s.influx != nil {
		probe("influxdb", s.influx.HealthCheck, false)
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":  overall,
		"version": s.version,
		"checks":  checks,
	})
}

func (s *Server) maxUploadBytes() int64 {
	if s.cfg.MaxUploadMB <= 0 {
		return maxRequestBodySize
	}
	return s.cfg.MaxUploadBytes()
}
