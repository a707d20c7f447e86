package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/auth"
	"github.com/iudanet/edulearn/internal/validation"
	"github.com/iudanet/edulearn/pkg/api"
)

// SessionService is the part of auth.Service the HTTP layer uses
type SessionService interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, userID, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// maxBodyBytes ограничивает размер JSON тела запросов авторизации
const maxBodyBytes = 1 << 16

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger   *slog.Logger
	sessions SessionService
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, sessions SessionService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		sessions: sessions,
	}
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		sendError(h.logger, w, "password is required", http.StatusBadRequest)
		return
	}

	pair, err := h.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		sendServiceError(h.logger, r, w, "login", err)
		return
	}

	sendJSON(h.logger, w, tokenResponse(pair), http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Обмен refresh token на новую пару токенов, старый refresh token погашается
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		sendError(h.logger, w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := h.sessions.Refresh(ctx, id.UserID, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		sendServiceError(h.logger, r, w, "refresh", err)
		return
	}

	sendJSON(h.logger, w, tokenResponse(pair), http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Отзывает переданный refresh token, повторный вызов тоже успешен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		sendError(h.logger, w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode logout request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.sessions.Logout(ctx, id.UserID, strings.TrimSpace(req.RefreshToken)); err != nil {
		sendServiceError(h.logger, r, w, "logout", err)
		return
	}

	sendJSON(h.logger, w, api.MessageResponse{Message: "Logout successful"}, http.StatusOK)
}

// LogoutAll обрабатывает POST /api/v1/auth/logout-all
// Отзывает все refresh tokens вызывающего пользователя
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		sendError(h.logger, w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.sessions.LogoutAll(r.Context(), id.UserID)
	if err != nil {
		sendServiceError(h.logger, r, w, "logout all", err)
		return
	}

	sendJSON(h.logger, w, api.LogoutAllResponse{
		Message:       "Logged out from all sessions",
		RevokedTokens: count,
	}, http.StatusOK)
}

// Profile обрабатывает GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		sendError(h.logger, w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.sessions.Profile(r.Context(), id.UserID)
	if err != nil {
		sendServiceError(h.logger, r, w, "profile", err)
		return
	}

	sendJSON(h.logger, w, profile, http.StatusOK)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func tokenResponse(pair *auth.TokenPair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}
