package models

import "time"

// User represents a registered player.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// UserSummary is the public projection of a user returned by the auth endpoints.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}
