// Package auth manages the client session: it logs in, keeps the token pair in
// the local store, refreshes it before the access token runs out and logs out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/edulearn/internal/client/api"
	"github.com/iudanet/edulearn/internal/client/storage"
	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/validation"
	pkgapi "github.com/iudanet/edulearn/pkg/api"
)

// DefaultRefreshBefore is how long before access expiry the session is refreshed
const DefaultRefreshBefore = time.Minute

var (
	// ErrNotLoggedIn means there is no stored session
	ErrNotLoggedIn = errors.New("not logged in, run 'edulearn login' first")

	// ErrSessionExpired means the stored session can no longer be used or refreshed
	ErrSessionExpired = errors.New("session expired, run 'edulearn login' again")
)

// Service предоставляет функции авторизации
type Service struct {
	api           APIClient
	store         storage.AuthStorage
	logger        *slog.Logger
	now           func() time.Time
	refreshBefore time.Duration
}

// Option configures Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRefreshBefore sets how early the access token is renewed
func WithRefreshBefore(d time.Duration) Option {
	return func(s *Service) { s.refreshBefore = d }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService создает новый сервис авторизации
func NewService(apiClient APIClient, store storage.AuthStorage, opts ...Option) *Service {
	s := &Service{
		api:           apiClient,
		store:         store,
		logger:        slog.Default(),
		now:           time.Now,
		refreshBefore: DefaultRefreshBefore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates and stores the new session
func (s *Service) Login(ctx context.Context, email, password string) (*storage.AuthData, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	resp, err := s.api.Login(ctx, pkgapi.LoginRequest{
		Email:    models.NormalizeEmail(email),
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return s.save(ctx, resp)
}

// Status returns the stored session as is
func (s *Service) Status(ctx context.Context) (*storage.AuthData, error) {
	return s.load(ctx)
}

// Session returns a usable session, refreshing it when the access token is close to expiry
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if auth.Expired(now) {
		return nil, ErrSessionExpired
	}

	// refresh требует действующий access token, поэтому обновляем заранее
	if auth.Expired(now.Add(s.refreshBefore)) {
		return s.refresh(ctx, auth)
	}

	return auth, nil
}

// Refresh rotates the token pair now
func (s *Service) Refresh(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if auth.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	return s.refresh(ctx, auth)
}

// Profile returns the current user's profile from the server
func (s *Service) Profile(ctx context.Context) (*models.UserProfile, error) {
	auth, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.api.Profile(ctx, auth.AccessToken)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.forget(ctx)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, err
	}

	return profile, nil
}

// Logout revokes the refresh token on the server and always deletes the local session
func (s *Service) Logout(ctx context.Context) error {
	auth, err := s.load(ctx)
	if err != nil {
		return err
	}

	// Уведомляем сервер (best effort): с истекшим access token сервер запрос не примет
	if !auth.Expired(s.now()) {
		if err := s.api.Logout(ctx, auth.AccessToken, auth.RefreshToken); err != nil {
			s.logger.WarnContext(ctx, "failed to logout on server", slog.Any("error", err))
		}
	}

	// Всегда удаляем локальные данные, даже если сервер недоступен
	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}

// LogoutAll revokes every session of the user and deletes the local one
func (s *Service) LogoutAll(ctx context.Context) (int, error) {
	auth, err := s.Session(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.api.LogoutAll(ctx, auth.AccessToken)
	if err != nil {
		return 0, fmt.Errorf("logout everywhere failed: %w", err)
	}

	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return n, fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return n, nil
}

func (s *Service) refresh(ctx context.Context, auth *storage.AuthData) (*storage.AuthData, error) {
	resp, err := s.api.Refresh(ctx, auth.AccessToken, auth.RefreshToken)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			// refresh token отозван или уже использован: сессия потеряна
			s.forget(ctx)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("refresh failed: %w", err)
	}

	s.logger.DebugContext(ctx, "session refreshed")
	return s.save(ctx, resp)
}

func (s *Service) save(ctx context.Context, resp *pkgapi.TokenResponse) (*storage.AuthData, error) {
	claims, err := peekClaims(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	auth := &storage.AuthData{
		Email:        claims.Email,
		UserID:       claims.Subject,
		Role:         claims.Role,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn,
	}
	// срок из самого токена точнее, чем now + expires_in
	if claims.ExpiresAt != nil {
		auth.ExpiresAt = claims.ExpiresAt.Unix()
	}

	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}
	return auth, nil
}

func (s *Service) load(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	return auth, nil
}

func (s *Service) forget(ctx context.Context) {
	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		s.logger.WarnContext(ctx, "failed to delete local auth data", slog.Any("error", err))
	}
}
