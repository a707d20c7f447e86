package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/edulearn/internal/models"
)

// testClock is a controllable time source
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	return Config{
		AccessSecret:  []byte("access-secret-0123456789abcdef0123"),
		RefreshSecret: []byte("refresh-secret-0123456789abcdef012"),
		AccessTTL:     24 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	s, err := NewService(testConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func testUser() *models.User {
	return &models.User{
		ID:    "7b0c3c5e-3b8c-4d7e-9a55-4a6d6f1e2a10",
		Email: "a@x.com",
		Role:  models.RoleTeacher,
	}
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing access secret", mutate: func(c *Config) { c.AccessSecret = nil }},
		{name: "missing refresh secret", mutate: func(c *Config) { c.RefreshSecret = nil }},
		{name: "identical secrets", mutate: func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTTL = 0 }},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.RefreshTTL = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewService(cfg)
			assert.Error(t, err)
		})
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	s, clock := newTestService(t)
	user := testUser()

	token, err := s.IssueAccessToken(user)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	clock.Advance(23 * time.Hour)

	claims, err := s.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, clock.t.Add(-23*time.Hour).Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, clock.t.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestAccessToken_Expired(t *testing.T) {
	s, clock := newTestService(t)

	token, err := s.IssueAccessToken(testUser())
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)

	_, err = s.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessToken_Invalid(t *testing.T) {
	s, _ := newTestService(t)

	other, err := NewService(Config{
		AccessSecret:  []byte("another-access-secret-0123456789ab"),
		RefreshSecret: []byte("another-refresh-secret-0123456789a"),
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken(testUser())
	require.NoError(t, err)

	good, err := s.IssueAccessToken(testUser())
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	refresh, err := s.IssueRefreshToken("user-1")
	require.NoError(t, err)

	rogue := testUser()
	rogue.Role = "ROOT"
	unknownRole, err := s.IssueAccessToken(rogue)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "random string", token: "randomstring123"},
		{name: "malformed", token: "invalid.token.here"},
		{name: "foreign signature", token: foreign},
		{name: "tampered payload", token: tampered},
		{name: "refresh token used as access", token: refresh.Token},
		{name: "unknown role", token: unknownRole},
		{name: "alg none", token: "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiIxIn0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	s, clock := newTestService(t)

	issued, err := s.IssueRefreshToken("user-1")
	require.NoError(t, err)
	assert.True(t, issued.ExpiresAt.After(issued.IssuedAt))
	assert.Equal(t, 7*24*time.Hour, issued.ExpiresAt.Sub(issued.IssuedAt))

	clock.Advance(6 * 24 * time.Hour)

	claims, err := s.VerifyRefreshToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshToken_UniquePerIssue(t *testing.T) {
	s, _ := newTestService(t)

	first, err := s.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, err := s.IssueRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
}

func TestRefreshToken_ExpiredAfterTTL(t *testing.T) {
	s, clock := newTestService(t)

	issued, err := s.IssueRefreshToken("user-1")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)

	_, err = s.VerifyRefreshToken(issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken_AccessTokenRejected(t *testing.T) {
	s, _ := newTestService(t)

	access, err := s.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = s.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
