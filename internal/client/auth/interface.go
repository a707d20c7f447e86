package auth

import (
	"context"

	"github.com/iudanet/edulearn/internal/models"
	pkgapi "github.com/iudanet/edulearn/pkg/api"
)

// APIClient is the part of the server API the session service talks to
type APIClient interface {
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	LogoutAll(ctx context.Context, accessToken string) (int, error)
	Profile(ctx context.Context, accessToken string) (*models.UserProfile, error)
}
