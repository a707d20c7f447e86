// Package redis implements storage.TokenStorage on Redis.
//
// Each record is a hash under <prefix>:rt:<sha256(token)>, expiring at the
// token's own expiry. A per-user set <prefix>:rtu:<user_id> indexes the token
// values for bulk revocation and housekeeping.
//
// Rotation touches records of two tokens and the user index in one script,
// so the store runs against a single Redis node only.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/storage"
)

// DefaultPrefix is the key namespace used when none is configured
const DefaultPrefix = "edulearn"

// Storage is a Redis-backed refresh token store
type Storage struct {
	rdb    *redis.Client
	prefix string
}

// New connects to addr and verifies the connection
func New(ctx context.Context, addr string) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, DefaultPrefix), nil
}

// NewWithClient wraps an existing single node client
func NewWithClient(rdb *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Storage{rdb: rdb, prefix: prefix}
}

// Close closes the underlying client
func (s *Storage) Close() error {
	return s.rdb.Close()
}

// Ping checks that redis is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Storage) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":rt:" + hex.EncodeToString(sum[:])
}

func (s *Storage) userKey(userID string) string {
	return s.prefix + ":rtu:" + userID
}

// CreateRefreshToken stores a new record; an existing token value is never overwritten
func (s *Storage) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	keys := []string{s.key(token.Token), s.userKey(token.UserID)}

	created, err := createLua.Run(ctx, s.rdb, keys, recordArgs(token)...).Int64()
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	if created == 0 {
		return storage.ErrTokenAlreadyExists
	}

	return nil
}

// FindActiveRefreshToken returns the record if it exists and is not revoked
func (s *Storage) FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if len(fields) == 0 || fields["is_revoked"] != "0" {
		return nil, storage.ErrTokenNotFound
	}

	return decodeRecord(fields)
}

// RevokeRefreshToken marks the record revoked if it is active
func (s *Storage) RevokeRefreshToken(ctx context.Context, token string, now time.Time) error {
	if err := revokeLua.Run(ctx, s.rdb, []string{s.key(token)}, formatTime(now)).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken consumes oldToken and stores next in one script
func (s *Storage) RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	keys := []string{s.key(oldToken), s.key(next.Token), s.userKey(next.UserID)}
	args := append([]interface{}{formatTime(now)}, recordArgs(next)...)

	res, err := rotateLua.Run(ctx, s.rdb, keys, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("failed to rotate refresh token: empty script reply")
	}

	status, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("failed to rotate refresh token: unexpected status %v", res[0])
	}

	switch status {
	case rotateStatusNotFound:
		return nil, storage.ErrTokenNotFound
	case rotateStatusExists:
		return nil, storage.ErrTokenAlreadyExists
	case rotateStatusRotated:
	default:
		return nil, fmt.Errorf("failed to rotate refresh token: unexpected status %d", status)
	}

	flat := make([]string, 0, len(res)-1)
	for _, v := range res[1:] {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("failed to rotate refresh token: unexpected field %v", v)
		}
		flat = append(flat, str)
	}

	return decodeRecord(pairs(flat))
}

// RevokeUserTokens revokes every active record indexed for userID
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, now time.Time) (int, error) {
	tokens, err := s.rdb.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user tokens: %w", err)
	}

	count := 0
	for _, token := range tokens {
		revoked, err := revokeLua.Run(ctx, s.rdb, []string{s.key(token)}, formatTime(now)).Int64()
		if err != nil {
			return count, fmt.Errorf("failed to revoke user token: %w", err)
		}
		count += int(revoked)
	}

	return count, nil
}

// DeleteExpiredTokens drops records that expired before the given time and
// prunes user index entries whose record redis has already evicted.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int, error) {
	deleted := 0

	iter := s.rdb.Scan(ctx, 0, s.prefix+":rtu:*", 100).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()

		tokens, err := s.rdb.SMembers(ctx, userKey).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to list user tokens: %w", err)
		}

		for _, token := range tokens {
			raw, err := s.rdb.HGet(ctx, s.key(token), "expires_at").Result()
			switch {
			case errors.Is(err, redis.Nil):
				// запись уже удалена по TTL, чистим индекс
			case err != nil:
				return deleted, fmt.Errorf("failed to read token expiry: %w", err)
			default:
				expiresAt, err := parseTime(raw)
				if err == nil && !expiresAt.Before(before) {
					continue
				}
				if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
					return deleted, fmt.Errorf("failed to delete token: %w", err)
				}
			}

			if err := s.rdb.SRem(ctx, userKey, token).Err(); err != nil {
				return deleted, fmt.Errorf("failed to prune user index: %w", err)
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan user indexes: %w", err)
	}

	return deleted, nil
}

func recordArgs(t *models.RefreshToken) []interface{} {
	revoked := "0"
	if t.IsRevoked {
		revoked = "1"
	}
	return []interface{}{
		t.ID,
		t.Token,
		t.UserID,
		formatTime(t.IssuedAt),
		formatTime(t.ExpiresAt),
		revoked,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10),
	}
}

func pairs(flat []string) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m
}

func decodeRecord(fields map[string]string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{
		ID:        fields["id"],
		Token:     fields["token"],
		UserID:    fields["user_id"],
		IsRevoked: fields["is_revoked"] == "1",
	}

	var err error
	if t.IssuedAt, err = parseTime(fields["issued_at"]); err != nil {
		return nil, fmt.Errorf("corrupt issued_at: %w", err)
	}
	if t.ExpiresAt, err = parseTime(fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("corrupt expires_at: %w", err)
	}
	if t.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("corrupt created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("corrupt updated_at: %w", err)
	}

	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
