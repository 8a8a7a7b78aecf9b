package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"msgcounter/internal/domain"
	"msgcounter/internal/service"
	"msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// CountsHandler exposes the counters over HTTP without resolving names
type CountsHandler struct {
	leaderboard  service.LeaderboardService
	defaultLimit int
	maxLimit     int
	logger       *logger.Logger
}

// NewCountsHandler creates a new counts handler
func NewCountsHandler(leaderboard service.LeaderboardService, defaultLimit, maxLimit int, logger *logger.Logger) *CountsHandler {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLeaderboardLimit
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(DefaultLeaderboardLimit, maxLimit)
	}
	return &CountsHandler{
		leaderboard:  leaderboard,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger.Named("counts_handler"),
	}
}

// LeaderboardResponse is the data payload of GET /api/v1/leaderboard/{kind}
type LeaderboardResponse struct {
	Kind    domain.CounterKind        `json:"kind"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// RegisterRoutes registers the counter routes
func (h *CountsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard/{kind}", h.GetLeaderboard)
	r.Get("/users/{userID}/counts", h.GetUserCounts)
}

// GetLeaderboard handles GET /api/v1/leaderboard/{kind}?limit=N
func (h *CountsHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	kindParam := chi.URLParam(r, "kind")
	kind, err := domain.ParseCounterKind(kindParam)
	if err != nil {
		writeError(w, r, errors.NewValidationError("Unknown counter kind", map[string]interface{}{
			"kind":    kindParam,
			"allowed": []domain.CounterKind{domain.CounterTotal, domain.CounterDelayed},
		}), h.logger)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > h.maxLimit {
			writeError(w, r, errors.NewValidationError("Invalid limit", map[string]interface{}{
				"limit": raw,
				"min":   1,
				"max":   h.maxLimit,
			}), h.logger)
			return
		}
		limit = parsed
	}

	entries := h.leaderboard.Entries(kind, limit)
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}

	writeSuccess(w, LeaderboardResponse{Kind: kind, Entries: entries}, h.logger)
}

// GetUserCounts handles GET /api/v1/users/{userID}/counts. Users with no
// messages report zero counts.
func (h *CountsHandler) GetUserCounts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, r, errors.NewValidationError("User ID is required", nil), h.logger)
		return
	}

	writeSuccess(w, h.leaderboard.UserCounts(userID), h.logger)
}
