package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/server/storage"
)

// CreateRefreshToken inserts a new record; duplicates fail with storage.ErrTokenAlreadyExists
func (s *Storage) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return insertToken(ctx, s.db, token)
}

func insertToken(ctx context.Context, db DBTX, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, token, user_id, issued_at, expires_at, is_revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.UserID,
		token.IssuedAt,
		token.ExpiresAt,
		token.IsRevoked,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrTokenAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

// FindActiveRefreshToken returns the non-revoked record for token
func (s *Storage) FindActiveRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, issued_at, expires_at, is_revoked, created_at, updated_at
		FROM refresh_tokens
		WHERE token = $1 AND is_revoked = FALSE
	`
	return scanToken(s.db.QueryRowContext(ctx, query, token))
}

// RevokeRefreshToken marks the token revoked; it is a no-op for unknown or revoked tokens
func (s *Storage) RevokeRefreshToken(ctx context.Context, token string, now time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE, updated_at = $1
		WHERE token = $2 AND is_revoked = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, now, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func consumeToken(ctx context.Context, db DBTX, token string, now time.Time) (*models.RefreshToken, error) {
	// The row lock taken by UPDATE serializes concurrent consumers; the
	// loser re-evaluates is_revoked and matches nothing.
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE, updated_at = $1
		WHERE token = $2 AND is_revoked = FALSE
		RETURNING id, token, user_id, issued_at, expires_at, is_revoked, created_at, updated_at
	`
	return scanToken(db.QueryRowContext(ctx, query, now, token))
}

// RotateRefreshToken consumes oldToken and inserts next in one transaction
func (s *Storage) RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
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
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return consumed, nil
}

// RevokeUserTokens revokes every active token of userID
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		UPDATE refresh_tokens
		SET is_revoked = TRUE, updated_at = $1
		WHERE user_id = $2 AND is_revoked = FALSE
	`
	return s.execCount(ctx, query, now, userID)
}

// DeleteExpiredTokens removes records that expired before the given time
func (s *Storage) DeleteExpiredTokens(ctx context.Context, before time.Time) (int, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	return s.execCount(ctx, query, before)
}

func (s *Storage) execCount(ctx context.Context, query string, args ...any) (int, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
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
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}
