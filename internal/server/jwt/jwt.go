// Package jwt issues and verifies the signed bearer tokens used by the server.
//
// Access and refresh tokens are HS256 JWTs signed with distinct secrets, so a
// leaked access secret cannot be used to mint refresh tokens and an access
// token never verifies as a refresh token.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/edulearn/internal/models"
)

const issuer = "edulearn"

var (
	// ErrTokenInvalid indicates a malformed token or a bad signature
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired indicates a correctly signed token past its exp claim
	ErrTokenExpired = errors.New("token expired")
)

// Config содержит конфигурацию для выпуска токенов
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AccessClaims represents the claims signed into an access token
type AccessClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the claims signed into a refresh token.
// ID (jti) is random so tokens issued within the same second differ.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// RefreshToken is a freshly issued refresh token together with its validity window
type RefreshToken struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string
}

// Service provides JWT token generation and validation
type Service struct {
	now func() time.Time
	cfg Config
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new JWT service.
// Misconfigured secrets are reported here so callers can fail at startup.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// AccessTTL returns the configured access token lifetime
func (s *Service) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

// IssueAccessToken creates a new JWT access token for the user
func (s *Service) IssueAccessToken(user *models.User) (string, error) {
	now := s.now()

	claims := AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return token, nil
}

// IssueRefreshToken creates a new JWT refresh token for the user
func (s *Service) IssueRefreshToken(userID string) (*RefreshToken, error) {
	now := s.now()
	// NumericDate хранит секунды, поэтому границы считаем от усеченного времени
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(s.cfg.RefreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &RefreshToken{
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyAccessToken validates signature and expiry of an access token
func (s *Service) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims, s.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}

// VerifyRefreshToken validates signature and expiry of a refresh token
func (s *Service) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims, s.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

func (s *Service) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	return nil
}
