/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the planning frontend

ROUTE GROUPS:
  /api/contracts/*      Contracts and their shifts
  /api/shifts/*         Validation, pricing, creation, planning
  /api/employers/*      Weekly compliance overview
  /api/employees/*      Leave balance, absences
  /api/absences/*       Absence decisions
  /api/leave/*          Accrual runs
  /api/benefits/*       Benefit envelope
  /api/holidays         Holiday calendar
  /api/agreement        Effective agreement
  /api/scenarios/*      Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the router.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Get("/{id}/shifts", h.ListContractShifts)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.CreateShift)
			r.Post("/validate", h.ValidateShift)
			r.Post("/quick-validate", h.QuickValidateShift)
			r.Post("/price", h.PriceShift)
			r.Post("/plan", h.PlanShifts)
			r.Get("/{id}", h.GetShift)
			r.Put("/{id}", h.UpdateShift)
		})

		r.Route("/employers/{id}", func(r chi.Router) {
			r.Get("/compliance", h.GetComplianceOverview)
			r.Get("/compliance/history", h.GetComplianceHistory)
		})

		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/leave-balance", h.GetLeaveBalance)
			r.Get("/leave-movements", h.GetLeaveMovements)
			r.Post("/leave-adjustments", h.AdjustLeave)
			r.Post("/absences", h.SubmitAbsence)
		})

		r.Route("/absences", func(r chi.Router) {
			r.Post("/{id}/approve", h.ApproveAbsence)
			r.Post("/{id}/reject", h.RejectAbsence)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/accrual-runs", h.ListAccrualRuns)
			r.Post("/accrual-runs", h.TriggerAccrual)
		})

		r.Get("/benefits/envelope", h.GetBenefitEnvelope)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		r.Get("/agreement", h.GetAgreement)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
