/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/travelers/*   Traveler management, trips, compliance, GDPR export
  /api/trips/*       Trip edit/delete
  /api/config/*      Risk threshold configuration
  /api/reports/*     CSV compliance report
  /api/audit         Audit log
  /api/admin/*       Retention purge

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; put
  this behind the company SSO proxy in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Traveler routes
		r.Route("/travelers", func(r chi.Router) {
			r.Get("/", h.ListTravelers)
			r.Post("/", h.CreateTraveler)
			r.Get("/{id}", h.GetTraveler)
			r.Delete("/{id}", h.EraseTraveler)
			r.Get("/{id}/export", h.ExportTraveler)
			r.Get("/{id}/trips", h.ListTrips)
			r.Post("/{id}/trips", h.CreateTrip)
			r.Get("/{id}/compliance", h.GetCompliance)
			r.Post("/{id}/forecast", h.Forecast)
		})

		// Trip routes
		r.Route("/trips", func(r chi.Router) {
			r.Put("/{id}", h.UpdateTrip)
			r.Delete("/{id}", h.DeleteTrip)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/risk", h.GetRiskConfig)
			r.Put("/risk", h.UpdateRiskConfig)
		})

		// Reports
		r.Get("/reports/compliance.csv", h.ComplianceReportCSV)

		// Audit log
		r.Get("/audit", h.ListAudit)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/purge", h.TriggerPurge)
		})
	})

	return r
}
