package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/VideoTube/internal/domain"
)

// apiResponse is the envelope of every successful response.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the envelope of every failed response. Detail is only filled
// in development.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Detail     string `json:"detail,omitempty"`
}

// respondWithJSON sends payload as JSON.
func respondWithJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

func respondWithData(w http.ResponseWriter, code int, data any, message string, logger *slog.Logger) {
	if data == nil {
		data = struct{}{}
	}
	respondWithJSON(w, code, apiResponse{StatusCode: code, Data: data, Message: message, Success: true}, logger)
}

// respondWithError maps err to a status code and sends the error envelope.
func respondWithError(w http.ResponseWriter, err error, development bool, logger *slog.Logger) {
	code := statusFor(err)
	body := apiError{StatusCode: code, Message: domain.PublicMessage(err), Success: false}
	if development {
		body.Detail = err.Error()
	}

	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "status", code, "error", err)
	} else {
		logger.Warn("request rejected", "status", code, "error", err)
	}
	respondWithJSON(w, code, body, logger)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
