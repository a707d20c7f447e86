package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/edulearn/internal/crypto"
	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/storage"
)

// Verifier checks email/password pairs against the user directory
type Verifier struct {
	logger *slog.Logger
	users  storage.UserDirectory
}

// NewVerifier creates a new credential verifier
func NewVerifier(logger *slog.Logger, users storage.UserDirectory) *Verifier {
	return &Verifier{logger: logger, users: users}
}

// Verify returns the user whose stored hash matches password.
// An unknown email and a wrong password both yield ErrInvalidCredentials
// after the same amount of bcrypt work.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := v.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			crypto.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := crypto.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		// битый хеш в базе снаружи неотличим от неверного пароля
		v.logger.ErrorContext(ctx, "stored password hash is unusable",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
