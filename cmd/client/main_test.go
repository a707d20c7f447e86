package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/edulearn/internal/client/cli"
	"github.com/iudanet/edulearn/internal/crypto"
	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/auth"
	"github.com/iudanet/edulearn/internal/server/handlers"
	"github.com/iudanet/edulearn/internal/server/jwt"
	"github.com/iudanet/edulearn/internal/server/middleware"
	"github.com/iudanet/edulearn/internal/server/router"
	"github.com/iudanet/edulearn/internal/server/storage/sqlite"
)

// startServer runs the real API over an in-memory database with one student
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hash, err := crypto.HashPassword("pw-123456")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.CreateUser(ctx, &models.User{
		ID:           "student-1",
		Email:        "student@example.com",
		Name:         "Stu Dent",
		PasswordHash: hash,
		Role:         models.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	issuer, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte("access-secret-for-tests-0123456789"),
		RefreshSecret: []byte("refresh-secret-for-tests-0123456789"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	service := auth.NewService(logger, store, store, issuer)
	srv := httptest.NewServer(router.New(router.Deps{
		Logger: logger,
		Gate:   middleware.NewGate(logger, issuer),
		Auth:   handlers.NewAuthHandler(logger, service),
		Users:  handlers.NewUserHandler(logger, service),
		Health: handlers.NewHealthHandler(logger, "test", nil),
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "EduLearn Client")
}

func TestRun_NoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestRun_SessionLifecycle(t *testing.T) {
	srv := startServer(t)
	dbPath := filepath.Join(t.TempDir(), "client.db")
	ctx := context.Background()

	exec := func(args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		full := append([]string{"-server", srv.URL, "-db", dbPath}, args...)
		code := run(ctx, full, &stdout, &stderr)
		return code, stdout.String(), stderr.String()
	}

	code, _, _ := exec("profile")
	assert.Equal(t, 3, code, "not logged in yet")

	t.Setenv(cli.PasswordEnv, "wrong-password")
	code, _, stderr := exec("login", "-email", "student@example.com")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Invalid credentials")

	t.Setenv(cli.PasswordEnv, "pw-123456")
	code, stdout, stderr := exec("login", "-email", "Student@Example.com")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Login successful")

	code, stdout, _ = exec("status")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "User ID: student-1")
	assert.Contains(t, stdout, "Role: STUDENT")

	code, stdout, stderr = exec("profile")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Name: Stu Dent")

	code, stdout, stderr = exec("refresh")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Session refreshed")

	// токены после ротации продолжают работать
	code, _, stderr = exec("profile")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr = exec("logout")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Logout successful")

	code, stdout, _ = exec("status")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Not authenticated")
}

func TestRun_LogoutAll(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	t.Setenv(cli.PasswordEnv, "pw-123456")

	// две независимые сессии одного пользователя
	dbA := filepath.Join(t.TempDir(), "a.db")
	dbB := filepath.Join(t.TempDir(), "b.db")
	for _, db := range []string{dbA, dbB} {
		var stdout, stderr bytes.Buffer
		code := run(ctx, []string{"-server", srv.URL, "-db", db, "login", "-email", "student@example.com"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
	}

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"-server", srv.URL, "-db", dbA, "logout", "-all"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "2 session(s) closed")

	// у второго устройства refresh token уже отозван
	stdout.Reset()
	stderr.Reset()
	code = run(ctx, []string{"-server", srv.URL, "-db", dbB, "refresh"}, &stdout, &stderr)
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr.String(), "session expired")
}
