// Package auth implements login, refresh token rotation, logout and profile
// lookup on top of the token issuer and the refresh token store.
//
// Session lifecycle: a login creates an active refresh record; every refresh
// consumes the presented record and creates its successor in one store
// operation; logout revokes the presented record. A consumed or revoked
// record is never accepted again.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/jwt"
	"github.com/iudanet/edulearn/internal/server/storage"
)

// TokenIssuer signs and verifies the tokens handed out by the service
type TokenIssuer interface {
	IssueAccessToken(user *models.User) (string, error)
	IssueRefreshToken(userID string) (*jwt.RefreshToken, error)
	VerifyRefreshToken(token string) (*jwt.RefreshClaims, error)
	AccessTTL() time.Duration
}

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // время жизни access token в секундах
}

// Service coordinates credential checks, token issuance and the refresh store
type Service struct {
	logger   *slog.Logger
	verifier *Verifier
	users    storage.UserDirectory
	tokens   storage.TokenStorage
	issuer   TokenIssuer
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new session service
func NewService(logger *slog.Logger, users storage.UserDirectory, tokens storage.TokenStorage, issuer TokenIssuer, opts ...Option) *Service {
	s := &Service{
		logger:   logger,
		verifier: NewVerifier(logger, users),
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and starts a new session
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "login failed: invalid credentials", slog.String("email", email))
		}
		return nil, err
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	record := s.newRecord(user.ID, refresh)
	if err := s.tokens.CreateRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email))

	return s.pair(access, refresh), nil
}

// Refresh exchanges an active refresh token for a new access/refresh pair.
// The presented token is consumed: exactly one of any concurrent callers
// presenting the same token succeeds. Every token related failure is
// reported as ErrInvalidRefreshToken with the concrete reason wrapped.
// A token of another user is rejected with ErrForbidden and stays active,
// the same way Logout treats it.
func (s *Service) Refresh(ctx context.Context, userID, presented string) (*TokenPair, error) {
	claims, err := s.issuer.VerifyRefreshToken(presented)
	if err != nil {
		return nil, s.rejectRefresh(ctx, err)
	}

	if claims.Subject != userID {
		s.logger.WarnContext(ctx, "refresh with refresh token of another user",
			slog.String("user_id", userID))
		return nil, fmt.Errorf("%w: refresh token belongs to another user", ErrForbidden)
	}

	record, err := s.tokens.FindActiveRefreshToken(ctx, presented)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, s.rejectRefresh(ctx, ErrTokenRevokedOrNotFound)
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if record.UserID != claims.Subject {
		return nil, s.rejectRefresh(ctx, fmt.Errorf("%w: subject does not match record", ErrTokenInvalid))
	}

	// запись могла пережить срок токена, если sweeper еще не отработал
	now := s.now()
	if !record.Active(now) {
		return nil, s.rejectRefresh(ctx, ErrTokenExpired)
	}

	// claims access token строятся по актуальной записи пользователя
	user, err := s.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, s.rejectRefresh(ctx, fmt.Errorf("%w: user no longer exists", ErrNotFound))
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	next := s.newRecord(user.ID, refresh)
	if _, err := s.tokens.RotateRefreshToken(ctx, presented, next, now); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			// параллельный refresh успел поглотить этот токен
			return nil, s.rejectRefresh(ctx, ErrTokenRevokedOrNotFound)
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", user.ID))

	return s.pair(access, refresh), nil
}

// Logout revokes the presented refresh token. Repeated calls succeed
// without further changes. A well signed but expired token is still revoked.
func (s *Service) Logout(ctx context.Context, userID, presented string) error {
	if presented == "" {
		return fmt.Errorf("%w: refresh token is required", ErrBadRequest)
	}

	claims, err := s.issuer.VerifyRefreshToken(presented)
	switch {
	case err == nil:
		if claims.Subject != userID {
			s.logger.WarnContext(ctx, "logout with refresh token of another user",
				slog.String("user_id", userID))
			return fmt.Errorf("%w: refresh token belongs to another user", ErrForbidden)
		}
	case errors.Is(err, ErrTokenExpired):
		// подпись проверена, истек только срок: отзываем по значению токена
	default:
		s.logger.WarnContext(ctx, "logout with invalid refresh token", slog.Any("error", err))
		return err
	}

	if err := s.tokens.RevokeRefreshToken(ctx, presented, s.now()); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out successfully", slog.String("user_id", userID))

	return nil
}

// LogoutAll revokes every active refresh token of the user
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.tokens.RevokeUserTokens(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out from all sessions",
		slog.String("user_id", userID),
		slog.Int("tokens_revoked", count))

	return count, nil
}

// Profile returns the user without credentials
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (s *Service) rejectRefresh(ctx context.Context, cause error) error {
	s.logger.WarnContext(ctx, "refresh rejected", slog.Any("error", cause))
	return fmt.Errorf("%w: %w", ErrInvalidRefreshToken, cause)
}

func (s *Service) issuePair(user *models.User) (string, *jwt.RefreshToken, error) {
	access, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return access, refresh, nil
}

func (s *Service) newRecord(userID string, refresh *jwt.RefreshToken) *models.RefreshToken {
	now := s.now().UTC()
	return &models.RefreshToken{
		ID:        uuid.New().String(),
		Token:     refresh.Token,
		UserID:    userID,
		IssuedAt:  refresh.IssuedAt,
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) pair(access string, refresh *jwt.RefreshToken) *TokenPair {
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
	}
}
