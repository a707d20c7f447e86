package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/edulearn/internal/server/auth"
	"github.com/iudanet/edulearn/pkg/api"
)

// statusFor maps an error from the auth service to a status code and a
// client-visible message. Anything unrecognized is an internal error and
// its text is never exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, auth.ErrTokenRevokedOrNotFound):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, auth.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}

// sendServiceError maps err with statusFor and logs internal failures
func sendServiceError(logger *slog.Logger, r *http.Request, w http.ResponseWriter, op string, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	sendError(logger, w, message, status)
}
