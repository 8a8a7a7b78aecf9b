package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"msgcounter/internal/middleware"
	"msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// NewRouter configures the ops HTTP router
func NewRouter(health *HealthHandler, counts *CountsHandler, log *logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/health", health.Check)

	r.Route("/api/v1", func(r chi.Router) {
		counts.RegisterRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, errors.NewNotFoundError("Endpoint not found"), log)
	})

	log.Info("Router configured successfully")
	return r
}
