package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"msgcounter/internal/middleware"
	"msgcounter/pkg/errors"
	"msgcounter/pkg/logger"
)

// SuccessResponse is the envelope for successful API responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, data interface{}, log *logger.Logger) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data}, log)
}

// writeError writes an AppError using the standard error envelope
func writeError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = middleware.GetRequestID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	log.WithFields(map[string]interface{}{
		"type":       string(appErr.Type),
		"path":       r.URL.Path,
		"request_id": response.Error.RequestID,
	}).Debug("Request rejected")

	writeJSON(w, appErr.StatusCode, response, log)
}
