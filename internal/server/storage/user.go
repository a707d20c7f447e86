package storage

import (
	"context"

	"github.com/iudanet/edulearn/internal/models"
)

// UserDirectory is the read-only user lookup the auth subsystem depends on
type UserDirectory interface {
	// GetUserByEmail retrieves user by email (case-insensitive)
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// UserStorage defines interface for user data persistence
type UserStorage interface {
	UserDirectory

	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if email is taken
	CreateUser(ctx context.Context, user *models.User) error
}
