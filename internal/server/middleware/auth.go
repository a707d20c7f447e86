package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/auth"
	"github.com/iudanet/edulearn/internal/server/jwt"
	"github.com/iudanet/edulearn/pkg/api"
)

// Policy declares who may reach a route.
// Public routes skip authentication; an empty Roles list admits any
// authenticated caller.
type Policy struct {
	Roles  []models.Role
	Public bool
}

// Public admits everyone
func Public() Policy {
	return Policy{Public: true}
}

// Authenticated admits any caller with a valid access token
func Authenticated() Policy {
	return Policy{}
}

// RequireRoles admits authenticated callers whose role is in roles
func RequireRoles(roles ...models.Role) Policy {
	return Policy{Roles: roles}
}

// AccessTokenVerifier checks access tokens
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.AccessClaims, error)
}

// Gate runs authentication and then authorization for every protected request
type Gate struct {
	logger   *slog.Logger
	verifier AccessTokenVerifier
}

// NewGate creates a new authorization gate
func NewGate(logger *slog.Logger, verifier AccessTokenVerifier) *Gate {
	return &Gate{logger: logger, verifier: verifier}
}

// Authenticate extracts and verifies the bearer token of r
func (g *Gate) Authenticate(r *http.Request) (*auth.Identity, error) {
	// Извлекаем токен из заголовка Authorization
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("%w: missing Authorization header", auth.ErrUnauthorized)
	}

	// Ожидаем формат: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, fmt.Errorf("%w: invalid Authorization header format", auth.ErrTokenInvalid)
	}

	claims, err := g.verifier.VerifyAccessToken(parts[1])
	if err != nil {
		return nil, err
	}

	return &auth.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// Authorize checks the identity against the required roles.
// A nil identity is denied whenever roles are required.
func (g *Gate) Authorize(id *auth.Identity, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	if id == nil {
		return fmt.Errorf("%w: no identity", auth.ErrForbidden)
	}
	if !slices.Contains(roles, id.Role) {
		return fmt.Errorf("%w: role %s not permitted", auth.ErrForbidden, id.Role)
	}
	return nil
}

// Protect returns middleware enforcing policy. The identity produced by
// authentication is handed to authorization and then stored in the request
// context for handlers.
func (g *Gate) Protect(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var id *auth.Identity
			if !policy.Public {
				var err error
				id, err = g.Authenticate(r)
				if err != nil {
					g.logger.WarnContext(ctx, "authentication failed",
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
					status, message := authFailure(err)
					writeJSONError(w, status, message)
					return
				}
			}

			if err := g.Authorize(id, policy.Roles); err != nil {
				attrs := []any{slog.String("path", r.URL.Path), slog.Any("error", err)}
				if id != nil {
					attrs = append(attrs, slog.String("user_id", id.UserID))
				}
				g.logger.WarnContext(ctx, "authorization denied", attrs...)
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			if id != nil {
				g.logger.DebugContext(ctx, "user authenticated",
					slog.String("user_id", id.UserID),
					slog.String("role", string(id.Role)))
				ctx = auth.WithIdentity(ctx, id)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	default:
		return http.StatusUnauthorized, "Unauthorized"
	}
}

// writeJSONError отправляет ошибку в формате api.ErrorResponse
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
