package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/edulearn/internal/client/storage"
)

// создаём тестовое BoltDB хранилище с auth bucket
func createTestAuthStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "auth_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestStorage_SaveGetDeleteAuth(t *testing.T) {
	ctx := context.Background()
	store := createTestAuthStorage(t)

	auth := &storage.AuthData{
		Email:        "student@example.com",
		UserID:       "user-id-123",
		Role:         "STUDENT",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}

	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	// повторное сохранение заменяет сессию целиком
	rotated := *auth
	rotated.AccessToken = "access-token-2"
	rotated.RefreshToken = "refresh-token-2"
	require.NoError(t, store.SaveAuth(ctx, &rotated))

	got, err = store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-2", got.RefreshToken)

	require.NoError(t, store.DeleteAuth(ctx))

	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	err = store.DeleteAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestStorage_SaveAuth_Nil(t *testing.T) {
	store := createTestAuthStorage(t)

	err := store.SaveAuth(context.Background(), nil)
	assert.Error(t, err)
}

func TestStorage_Closed(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.SaveAuth(ctx, &storage.AuthData{}), storage.ErrStorageClosed)
	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, store.DeleteAuth(ctx), storage.ErrStorageClosed)
}

func TestStorage_BucketMissing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		call func(s *Storage) error
		name string
	}{
		{name: "save", call: func(s *Storage) error { return s.SaveAuth(ctx, &storage.AuthData{Email: "a@x.com"}) }},
		{name: "get", call: func(s *Storage) error { _, err := s.GetAuth(ctx); return err }},
		{name: "delete", call: func(s *Storage) error { return s.DeleteAuth(ctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestAuthStorage(t)

			err := store.db.Update(func(tx *bbolt.Tx) error {
				return tx.DeleteBucket(bucketAuth)
			})
			require.NoError(t, err)

			err = tt.call(store)
			assert.ErrorContains(t, err, "auth bucket not found")
		})
	}
}
