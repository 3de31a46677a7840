package models

// Ключи gin-контекста, которые выставляет middleware аутентификации.
const (
	UserIDContextKey  = "user_id"
	TokenIDContextKey = "token_id"
)
