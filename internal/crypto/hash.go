package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new password hashes
const DefaultCost = 10

// ErrPasswordMismatch indicates that a plaintext password does not match the stored hash
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword хеширует пароль с использованием bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет, соответствует ли пароль сохраненному хешу.
// Сравнение выполняется bcrypt за постоянное время.
func VerifyPassword(password, hash string) error {
	if hash == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}

	return nil
}

// dummyHash is compared against when the user does not exist so that both
// failure paths spend the same bcrypt time.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("edulearn-dummy-password"), DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// BurnPasswordCheck runs a bcrypt comparison against a fixed hash and discards the result
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
