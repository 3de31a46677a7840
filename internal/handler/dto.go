package handler

import "geopolitics-server/internal/models"

type startGameRequest struct {
	Country     string  `json:"country" binding:"required"`
	CountryCode *string `json:"country_code"`
	// Указатель: год 0 допустим, но поле обязательно.
	Year   *int   `json:"year" binding:"required"`
	UserID *int64 `json:"user_id"`
}

type makeDecisionRequest struct {
	GameID      *int64 `json:"game_id" binding:"required"`
	ChoiceIndex *int   `json:"choice_index" binding:"required"`
}

type startGameResponse struct {
	Success bool             `json:"success"`
	Game    *models.GameView `json:"game,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type decisionResponse struct {
	Success          bool             `json:"success"`
	Game             *models.GameView `json:"game,omitempty"`
	OutcomeNarrative string           `json:"outcome_narrative,omitempty"`
	StatChanges      map[string]int   `json:"stat_changes,omitempty"`
	Event            *string          `json:"event,omitempty"`
	Error            string           `json:"error,omitempty"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool               `json:"success"`
	User    models.UserSummary `json:"user"`
	Token   string             `json:"token"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
