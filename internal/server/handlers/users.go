package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/edulearn/internal/models"
)

// ProfileReader looks up users by id
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// UserHandler обрабатывает запросы к справочнику пользователей
type UserHandler struct {
	logger   *slog.Logger
	profiles ProfileReader
}

// NewUserHandler создает новый handler пользователей
func NewUserHandler(logger *slog.Logger, profiles ProfileReader) *UserHandler {
	return &UserHandler{logger: logger, profiles: profiles}
}

// Get обрабатывает GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		sendError(h.logger, w, "user id is required", http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		sendServiceError(h.logger, r, w, "get user", err)
		return
	}

	sendJSON(h.logger, w, profile, http.StatusOK)
}
