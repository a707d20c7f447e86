package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/storage"
)

const tokenColumns = `id, token, user_id, issued_at, expires_at, is_revoked, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateRefreshToken stores a new refresh token
func (s *Storage) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return insertToken(ctx, s.db, token)
}

func insertToken(ctx context.Context, q queryer, token *models.RefreshToken) error {
	// Обычный INSERT: дубликат значения токена должен падать, а не перезаписываться
	query := `
		INSERT INTO refresh_tokens (` + tokenColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.UserID,
		token.IssuedAt.UTC(),
		token.ExpiresAt.UTC(),
		token.IsRevoked,
		token.CreatedAt.UTC(),
		token.UpdatedAt.UTC(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrTokenAlreadyExists
		}
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// FindActiveRefreshToken retrieves a non-revoked refresh token by token value
func (s *Storage) FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE token = ? AND is_revoked = 0
	`

	return scanToken(s.db.QueryRowContext(ctx, query, token))
}

// RevokeRefreshToken marks the token revoked; unknown or revoked tokens are ignored
func (s *Storage) RevokeRefreshToken(ctx context.Context, token string, now time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = 1, updated_at = ?
		WHERE token = ? AND is_revoked = 0
	`

	if _, err := s.db.ExecContext(ctx, query, now.UTC(), token); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

func consumeToken(ctx context.Context, q queryer, token string, now time.Time) (*models.RefreshToken, error) {
	// UPDATE ... WHERE is_revoked = 0 является compare-and-swap:
	// только один вызов увидит строку в RETURNING
	query := `
		UPDATE refresh_tokens
		SET is_revoked = 1, updated_at = ?
		WHERE token = ? AND is_revoked = 0
		RETURNING ` + tokenColumns

	return scanToken(q.QueryRowContext(ctx, query, now.UTC(), token))
}

// RotateRefreshToken consumes oldToken and inserts next in a single transaction
func (s *Storage) RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	consumed, err := consumeToken(ctx, tx, oldToken, now)
	if err != nil {
		return nil, err
	}

	if err := insertToken(ctx, tx, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rotation: %w", err)
	}

	return consumed, nil
}

// RevokeUserTokens revokes all active refresh tokens for a user
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = 1, updated_at = ?
		WHERE user_id = ? AND is_revoked = 0
	`

	result, err := s.db.ExecContext(ctx, query, now.UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteExpiredTokens removes all tokens that expired before the given time
func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func scanToken(row *sql.Row) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}

	err := row.Scan(
		&token.ID,
		&token.Token,
		&token.UserID,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.IsRevoked,
		&token.CreatedAt,
		&token.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}
