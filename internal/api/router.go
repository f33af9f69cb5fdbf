package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clipforge/remuxd/internal/api/handler"
	mw "github.com/clipforge/remuxd/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	remuxHandler *handler.RemuxHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(15 * time.Minute))

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Get("/stats", healthHandler.Stats)

		// Synchronous remux: run the whole pipeline in the request.
		r.Post("/remux", remuxHandler.Remux)

		// Asynchronous jobs, drained by the worker pool.
		r.Post("/jobs", remuxHandler.SubmitJob)
		r.Get("/jobs/{jobID}", remuxHandler.GetJob)
	})

	return r
}
