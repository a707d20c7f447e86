package auth

import (
	"context"

	"github.com/iudanet/edulearn/internal/models"
)

// Identity is the verified caller produced by request authentication
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom извлекает проверенную личность из контекста
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
