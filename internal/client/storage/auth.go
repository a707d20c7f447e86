package storage

import (
	"context"
	"time"
)

// AuthStorage defines interface for storing the client session
type AuthStorage interface {
	// SaveAuth replaces the stored session
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves the stored session
	// Returns ErrAuthNotFound if no session exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes the stored session (logout)
	DeleteAuth(ctx context.Context) error
}

// AuthData is the cached token pair of the logged in user
type AuthData struct {
	Email        string `json:"email"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix время истечения access token
}

// AccessExpiry returns the access token expiry as time
func (a *AuthData) AccessExpiry() time.Time {
	return time.Unix(a.ExpiresAt, 0)
}

// Expired reports whether the access token is no longer valid at now
func (a *AuthData) Expired(now time.Time) bool {
	return !now.Before(a.AccessExpiry())
}
