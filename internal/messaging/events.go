package messaging

import (
	"time"

	"geopolitics-server/internal/models"
)

// GameEventType - тип события жизненного цикла партии.
type GameEventType string

const (
	GameStarted  GameEventType = "game.started"
	GameAdvanced GameEventType = "game.advanced"
	GameDeleted  GameEventType = "game.deleted"
)

// GameEvent is published after every change to a game.
type GameEvent struct {
	Type        GameEventType `json:"type"`
	GameID      int64         `json:"game_id"`
	UserID      *int64        `json:"user_id,omitempty"`
	Country     string        `json:"country,omitempty"`
	CurrentDate string        `json:"current_date,omitempty"`
	Stats       *models.Stats `json:"stats,omitempty"`
	// OutcomeKind показывает, был ли ответ модели разобран или подменен резервным.
	OutcomeKind string    `json:"outcome_kind,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewGameEvent builds an event from the current game state.
func NewGameEvent(eventType GameEventType, game *models.Game) GameEvent {
	stats := game.Stats
	return GameEvent{
		Type:        eventType,
		GameID:      game.ID,
		UserID:      game.UserID,
		Country:     game.Country,
		CurrentDate: game.CurrentDate,
		Stats:       &stats,
		OccurredAt:  time.Now().UTC(),
	}
}
