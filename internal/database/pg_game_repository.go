package database

import (
	"context"
	"errors"
	"fmt"

	"geopolitics-server/internal/interfaces"
	"geopolitics-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgGameRepository implements GameRepository
var _ interfaces.GameRepository = (*pgGameRepository)(nil)

// "current_date" экранируется: без кавычек это встроенная функция SQL.
const (
	createGameQuery = `
        INSERT INTO games (user_id, country, country_code, "current_date", stats, narrative_history, current_choices)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`
	getGameByIDQuery = `
        SELECT id, user_id, country, country_code, "current_date", stats, narrative_history, current_choices, created_at, updated_at
        FROM games WHERE id = $1`
	listRecentGamesQuery = `
        SELECT id, country, "current_date", created_at
        FROM games ORDER BY created_at DESC, id DESC LIMIT $1`
	updateGameQuery = `
        UPDATE games
        SET "current_date" = $2, stats = $3, narrative_history = $4, current_choices = $5, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at`
	deleteGameQuery = `DELETE FROM games WHERE id = $1`
)

type pgGameRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgGameRepository creates a new PostgreSQL-backed GameRepository.
// Stats, history and choices are stored as JSONB documents.
func NewPgGameRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.GameRepository {
	return &pgGameRepository{
		db:     db,
		logger: logger.Named("PgGameRepo"),
	}
}

func (r *pgGameRepository) Create(ctx context.Context, game *models.Game) error {
	history := nonNilHistory(game.NarrativeHistory)
	choices := nonNilChoices(game.CurrentChoices)

	err := r.db.QueryRow(ctx, createGameQuery,
		game.UserID, game.Country, game.CountryCode, game.CurrentDate,
		game.Stats, history, choices,
	).Scan(&game.ID, &game.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create game", zap.Error(err), zap.String("country", game.Country))
		return fmt.Errorf("failed to create game in postgres: %w", err)
	}
	game.NarrativeHistory = history
	game.CurrentChoices = choices
	r.logger.Info("Game created", zap.Int64("gameID", game.ID), zap.String("country", game.Country))
	return nil
}

func (r *pgGameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	game := &models.Game{}
	if err := pgxscan.Get(ctx, r.db, game, getGameByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Game not found", zap.Int64("gameID", id))
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to get game by id", zap.Error(err), zap.Int64("gameID", id))
		return nil, fmt.Errorf("failed to get game %d from postgres: %w", id, err)
	}
	return game, nil
}

func (r *pgGameRepository) ListRecent(ctx context.Context, limit int) ([]models.GameSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	games := make([]models.GameSummary, 0, limit)
	if err := pgxscan.Select(ctx, r.db, &games, listRecentGamesQuery, limit); err != nil {
		r.logger.Error("Failed to list recent games", zap.Error(err), zap.Int("limit", limit))
		return nil, fmt.Errorf("failed to list recent games: %w", err)
	}
	return games, nil
}

func (r *pgGameRepository) Update(ctx context.Context, game *models.Game) error {
	history := nonNilHistory(game.NarrativeHistory)
	choices := nonNilChoices(game.CurrentChoices)

	err := r.db.QueryRow(ctx, updateGameQuery,
		game.ID, game.CurrentDate, game.Stats, history, choices,
	).Scan(&game.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Attempted to update missing game", zap.Int64("gameID", game.ID))
			return models.ErrGameNotFound
		}
		r.logger.Error("Failed to update game", zap.Error(err), zap.Int64("gameID", game.ID))
		return fmt.Errorf("failed to update game %d: %w", game.ID, err)
	}
	r.logger.Debug("Game updated", zap.Int64("gameID", game.ID), zap.String("currentDate", game.CurrentDate))
	return nil
}

func (r *pgGameRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteGameQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete game", zap.Error(err), zap.Int64("gameID", id))
		return fmt.Errorf("failed to delete game %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrGameNotFound
	}
	r.logger.Info("Game deleted", zap.Int64("gameID", id))
	return nil
}

// JSONB-колонки объявлены NOT NULL, поэтому nil-срезы пишем как пустые массивы.
func nonNilHistory(h []models.NarrativeEntry) []models.NarrativeEntry {
	if h == nil {
		return []models.NarrativeEntry{}
	}
	return h
}

func nonNilChoices(c []models.ChoiceOption) []models.ChoiceOption {
	if c == nil {
		return []models.ChoiceOption{}
	}
	return c
}
