package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/edulearn/pkg/api"
)

// newTestLimiter returns a limiter driven by a manual clock
func newTestLimiter(t *testing.T, rate int, window time.Duration, logger *slog.Logger) (*RateLimiter, *time.Time) {
	t.Helper()
	limiter := NewRateLimiter(rate, window, logger)
	t.Cleanup(limiter.Stop)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("requests over limit are denied", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 3, time.Minute, logger)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("192.168.1.2"), fmt.Sprintf("request %d should be allowed", i+1))
		}
		assert.False(t, limiter.Allow("192.168.1.2"), "request over limit should be denied")
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, time.Minute, logger)

		assert.True(t, limiter.Allow("192.168.1.1"))
		assert.False(t, limiter.Allow("192.168.1.1"))
		assert.True(t, limiter.Allow("192.168.1.2"))
	})

	t.Run("window resets", func(t *testing.T) {
		limiter, now := newTestLimiter(t, 2, time.Minute, logger)

		assert.True(t, limiter.Allow("k"))
		assert.True(t, limiter.Allow("k"))
		assert.False(t, limiter.Allow("k"))

		*now = now.Add(59 * time.Second)
		assert.False(t, limiter.Allow("k"), "window not over yet")

		*now = now.Add(time.Second)
		assert.True(t, limiter.Allow("k"), "tokens should be refilled")
	})
}

func TestRateLimiter_CleanupOldBuckets(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter, now := newTestLimiter(t, 10, time.Minute, logger)

	limiter.Allow("192.168.1.1")
	*now = now.Add(30 * time.Second)
	limiter.Allow("192.168.1.2")

	*now = now.Add(40 * time.Second)
	limiter.cleanupOldBuckets()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.buckets, 1)
	assert.Contains(t, limiter.buckets, "192.168.1.2")
}

func TestRateLimiter_StopTwice(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestRateLimiter_Middleware(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	limiter, now := newTestLimiter(t, 2, time.Minute, logger)
	handler := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	}))

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	// порт не влияет на ключ
	assert.Equal(t, http.StatusOK, send("192.168.1.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("192.168.1.1:2000").Code)

	*now = now.Add(15 * time.Second)
	w := send("192.168.1.1:3000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "45", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Too Many Requests", resp.Error)
	assert.Contains(t, resp.Message, "rate limit exceeded")

	assert.Equal(t, http.StatusOK, send("192.168.1.9:1000").Code)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "rate limit exceeded")
	assert.Contains(t, logOutput, "ip=192.168.1.1")
	assert.Contains(t, logOutput, "/api/v1/auth/login")
	assert.Contains(t, logOutput, "POST")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For with single IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For with multiple IPs",
			remoteAddr: "10.0.0.1:12345",
			xff:        " 192.168.1.1 , 10.0.0.2, 10.0.0.3",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is empty",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.2.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.3.1:54321",
			expectedIP: "192.168.3.1",
		},
		{
			name:       "IPv6 RemoteAddr",
			remoteAddr: "[::1]:54321",
			expectedIP: "::1",
		},
		{
			name:       "RemoteAddr that is not host:port",
			remoteAddr: "pipe",
			expectedIP: "pipe",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expectedIP, getClientIP(req))
		})
	}
}
