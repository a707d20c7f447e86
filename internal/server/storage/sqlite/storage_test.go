package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/edulearn/internal/models"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	userID := uuid.New().String()
	now := time.Now()
	user := &models.User{
		ID:           userID,
		Email:        "user_" + userID[:8] + "@example.com",
		Name:         "Test User",
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	return userID
}

func newTestToken(userID, value string, issuedAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        uuid.New().String(),
		Token:     value,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(7 * 24 * time.Hour),
		CreatedAt: issuedAt,
		UpdatedAt: issuedAt,
	}
}
