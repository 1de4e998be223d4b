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
  /api/time-entries/*      Time registration ledger
  /api/monthly-locks/*     Month lock state
  /api/consultants/*       Consultant catalog
  /api/invoice-projects/*  Billing destinations
  /api/sections/*          Section catalog
  /api/projects/*          Projects and distribution keys
  /api/reports/*           Monthly report and timesheet
  /api/monthly-summary     Per-consultant totals

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Time entry routes
		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/", h.ListTimeEntries)
			r.Put("/", h.UpsertTimeEntry)
			r.Delete("/by-issue", h.DeleteTimeEntriesByIssue)
			r.Get("/export", h.ExportMonth)
			r.Post("/import", h.ImportMonth)
			r.Delete("/{id}", h.DeleteTimeEntry)
		})

		// Monthly lock routes
		r.Route("/monthly-locks", func(r chi.Router) {
			r.Get("/", h.GetLockStatus)
			r.Put("/", h.ToggleLock)
			r.Get("/by-month", h.ListLocksByMonth)
		})

		// Catalog routes
		r.Route("/consultants", func(r chi.Router) {
			r.Get("/", h.ListConsultants)
			r.Post("/", h.CreateConsultant)
		})
		r.Route("/invoice-projects", func(r chi.Router) {
			r.Get("/", h.ListInvoiceProjects)
			r.Post("/", h.CreateInvoiceProject)
		})
		r.Route("/sections", func(r chi.Router) {
			r.Get("/", h.ListSections)
			r.Post("/", h.CreateSection)
		})
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/export", h.ExportProjects)
			r.Post("/import", h.ImportProjects)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/timesheet", h.Timesheet)
		})
		r.Get("/monthly-summary", h.MonthlySummary)
	})

	return r
}
