package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	// MaxEmailLen максимальная длина email (RFC 5321)
	MaxEmailLen = 254
	// MinPasswordLen минимальная длина пароля для новых пользователей
	MinPasswordLen = 8
	// MaxPasswordLen bcrypt игнорирует байты после 72-го
	MaxPasswordLen = 72
)

// ValidateEmail проверяет, что строка является одиночным адресом без имени
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email is not a valid address")
	}

	return nil
}

// ValidatePassword проверяет требования к паролю при создании пользователя.
// При входе пароль не проверяется, чтобы не раскрывать политику.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}
