package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/welfare-transport/backend/internal/middleware"
)

// RouterConfig carries the HTTP-level settings of NewRouter.
type RouterConfig struct {
	Logger       *slog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64
	JWTSecret    string
}

// NewRouter mounts every route of the API on a chi router.
//
// Middleware is applied in order: RequestID → RealIP → SlogLogger →
// Recoverer → CORS → MaxBodySize. Health, the OpenAPI document and the
// management-code history are public; everything else requires a bearer
// token, and odometer correction and consolidation require the admin role.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = s.log
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	}

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/history/{code}", s.GetHistory)
	r.Get("/history/{code}/export", s.GetHistoryExport)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuth(cfg.JWTSecret))

		r.Route("/trip-records", func(r chi.Router) {
			r.Post("/", s.CreateTripRecord)
			r.Post("/duplicate-check", s.CheckDuplicate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetTripRecord)
				r.Delete("/", s.DeleteTripRecord)
				r.Post("/complete", s.CompleteTripRecord)
				r.Post("/completion-retry", s.RetryCompletion)
				r.Post("/times", s.RecordTime)
				r.Post("/cancel", s.CancelTripRecord)
				r.Post("/details", s.AddDetails)
			})
		})

		r.Get("/vehicles/{id}/odometer", s.GetOdometer)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Put("/vehicles/{id}/odometer", s.SetOdometer)
			r.Post("/admin/consolidations", s.RunConsolidation)
		})
	})

	return r
}
