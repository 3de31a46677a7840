package models

import "github.com/golang-jwt/jwt/v5"

// Claims содержит стандартные поля JWT и идентификатор пользователя.
// ID (jti) регистрируется в хранилище сессий и удаляется при выходе.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenDetails holds a freshly issued session token.
type TokenDetails struct {
	Token     string
	TokenID   string
	UserID    int64
	ExpiresAt int64
}
