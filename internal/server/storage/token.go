package storage

import (
	"context"
	"time"

	"github.com/iudanet/edulearn/internal/models"
)

// TokenStorage defines interface for refresh token persistence.
// Token values are unique at the storage level and records are never
// deleted by the auth flow itself.
type TokenStorage interface {
	// CreateRefreshToken stores a new refresh token record
	// Returns ErrTokenAlreadyExists if the token value is already stored
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// FindActiveRefreshToken retrieves a non-revoked record by token value
	// Returns ErrTokenNotFound if token doesn't exist or is revoked
	FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// RevokeRefreshToken marks the record revoked. Idempotent: revoking an
	// unknown or already revoked token is not an error and changes nothing.
	RevokeRefreshToken(ctx context.Context, token string, now time.Time) error

	// RotateRefreshToken consumes oldToken and stores next in one atomic unit.
	// Consuming is a compare-and-swap from active to revoked: of any number of
	// concurrent callers with the same oldToken exactly one succeeds, the
	// others get ErrTokenNotFound. Returns the consumed record, or
	// ErrTokenAlreadyExists if next collides (nothing is consumed then).
	RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error)

	// RevokeUserTokens revokes all active refresh tokens of a user
	// Returns number of revoked tokens
	RevokeUserTokens(ctx context.Context, userID string, now time.Time) (int, error)

	// DeleteExpiredTokens removes records that expired before the given time.
	// Used by the retention sweeper only.
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int, error)
}
