package models

import "time"

// RefreshToken представляет запись refresh token в хранилище.
// Запись создается при login и при каждой ротации, помечается отозванной
// при logout и при ротации. Удаление записей выполняет только внешний sweeper.
type RefreshToken struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`      // UUID записи
	Token     string    `json:"token"`   // подписанный refresh token, уникален
	UserID    string    `json:"user_id"` // ID владельца
	IsRevoked bool      `json:"is_revoked"`
}

// Active reports whether the record is neither revoked nor expired at now
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
