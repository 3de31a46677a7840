package interfaces

import (
	"context"
	"time"

	"geopolitics-server/internal/models"
)

// GameRepository persists simulation games.
// Update is last-write-wins: concurrent decisions on the same game are not arbitrated.
type GameRepository interface {
	// Create inserts the game and fills ID and CreatedAt.
	Create(ctx context.Context, game *models.Game) error
	// GetByID returns models.ErrGameNotFound when no game has the id.
	GetByID(ctx context.Context, id int64) (*models.Game, error)
	// ListRecent returns at most limit games ordered by created_at descending.
	ListRecent(ctx context.Context, limit int) ([]models.GameSummary, error)
	// Update overwrites date, stats, history and choices and sets UpdatedAt.
	Update(ctx context.Context, game *models.Game) error
	// Delete returns models.ErrGameNotFound when no game has the id.
	Delete(ctx context.Context, id int64) error
}

// UserRepository persists registered players.
type UserRepository interface {
	// CreateUser returns models.ErrUserAlreadyExists on a duplicate username.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenRepository хранит живые идентификаторы сессий (jti).
// Токен, jti которого отсутствует в хранилище, считается отозванным.
type TokenRepository interface {
	SetToken(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	// GetUserIDByTokenID returns models.ErrTokenNotFound for unknown or expired ids.
	GetUserIDByTokenID(ctx context.Context, tokenID string) (int64, error)
	DeleteToken(ctx context.Context, tokenID string) error
}
