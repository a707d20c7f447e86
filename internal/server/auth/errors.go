package auth

import (
	"errors"
	"fmt"

	"github.com/iudanet/edulearn/internal/server/jwt"
)

var (
	// ErrInvalidCredentials is returned by login for an unknown email or a wrong password alike
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid indicates a malformed token or a bad signature
	ErrTokenInvalid = jwt.ErrTokenInvalid

	// ErrTokenExpired indicates a token past its expiry
	ErrTokenExpired = jwt.ErrTokenExpired

	// ErrTokenRevokedOrNotFound indicates a refresh token with no active record
	ErrTokenRevokedOrNotFound = errors.New("refresh token revoked or not found")

	// ErrUnauthorized is the generic missing or rejected credential case
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without a permitted role
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates that the requested user does not exist
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates missing required input
	ErrBadRequest = errors.New("bad request")
)

// ErrInvalidRefreshToken is the single error refresh reports to callers.
// The concrete reason stays in the chain for errors.Is and logs.
var ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
