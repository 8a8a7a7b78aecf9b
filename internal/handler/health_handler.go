package handler

import (
	"context"
	"net/http"
	"time"

	"msgcounter/internal/domain"
	"msgcounter/internal/store"
	"msgcounter/pkg/logger"
)

// ServiceName is reported by the health endpoint
const ServiceName = "msgcounter"

const redisPingTimeout = 2 * time.Second

// Pinger is implemented by optional dependencies such as the Redis mirror
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store     *store.CounterStore
	backend   string
	redis     Pinger
	startedAt time.Time
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler. backend names the persistence
// backends in use; redis may be nil.
func NewHealthHandler(counterStore *store.CounterStore, backend string, redis Pinger, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:     counterStore,
		backend:   backend,
		redis:     redis,
		startedAt: time.Now(),
		logger:    logger.Named("health_handler"),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Uptime       string    `json:"uptime"`
	Backend      string    `json:"backend"`
	TrackedUsers int       `json:"tracked_users"`
	Redis        string    `json:"redis,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested")

	resp := HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Service:      ServiceName,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		Backend:      h.backend,
		TrackedUsers: h.store.Len(domain.CounterTotal),
	}

	// Redis is only a mirror of the files
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), redisPingTimeout)
		defer cancel()
		if err := h.redis.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Redis health check failed")
			resp.Status = "degraded"
			resp.Redis = "unreachable"
		} else {
			resp.Redis = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}
