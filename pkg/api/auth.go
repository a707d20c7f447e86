package api

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`    // email пользователя, регистр не важен
	Password string `json:"password"` // пароль в открытом виде, только по TLS
}

// RefreshRequest carries the refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // JWT refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// LogoutAllResponse reports how many sessions were closed
type LogoutAllResponse struct {
	Message       string `json:"message"`
	RevokedTokens int    `json:"revoked_tokens"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
