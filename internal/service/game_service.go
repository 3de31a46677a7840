package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geopolitics-server/internal/inference"
	"geopolitics-server/internal/interfaces"
	"geopolitics-server/internal/messaging"
	"geopolitics-server/internal/models"
	"geopolitics-server/internal/outcome"

	"go.uber.org/zap"
)

// Сообщения для клиента.
const (
	msgInferenceDownStart    = "Ollama n'est pas disponible. Démarrez-le avec 'ollama serve' puis 'ollama run mistral' (ou un autre modèle)."
	msgInferenceDownDecision = "Ollama n'est pas disponible"
	msgGameNotFound          = "Partie non trouvée"
	msgInvalidChoice         = "Choix invalide"
	msgCountryRequired       = "Le pays est requis"
)

// RecentGamesLimit bounds the recent games listing.
const RecentGamesLimit = 10

var yearPattern = regexp.MustCompile(`-?\d+`)

// StartGameInput describes a new simulation.
type StartGameInput struct {
	Country     string
	CountryCode *string
	Year        int
	UserID      *int64
}

// DecisionResult is what a player sees after a decision.
type DecisionResult struct {
	Game             models.GameView
	OutcomeNarrative string
	// StatChanges - дельты в том виде, в каком их вернула модель, до ограничения нулем.
	StatChanges map[string]int
	Event       *string
}

// GameService orchestrates the simulation: prompts, parsing, state transitions.
type GameService interface {
	StartGame(ctx context.Context, input StartGameInput) (*models.GameView, error)
	MakeDecision(ctx context.Context, gameID int64, choiceIndex int) (*DecisionResult, error)
	GetGame(ctx context.Context, gameID int64) (*models.GameView, error)
	ListGames(ctx context.Context) ([]models.GameSummary, error)
	DeleteGame(ctx context.Context, gameID int64) error
	InferenceHealthy(ctx context.Context) bool
}

var _ GameService = (*gameServiceImpl)(nil)

type gameServiceImpl struct {
	games     interfaces.GameRepository
	inference inference.Client
	publisher messaging.GamePublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewGameService creates the orchestrator. A nil publisher disables events.
func NewGameService(games interfaces.GameRepository, client inference.Client, publisher messaging.GamePublisher, logger *zap.Logger) GameService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &gameServiceImpl{
		games:     games,
		inference: client,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("GameService"),
	}
}

func (s *gameServiceImpl) InferenceHealthy(ctx context.Context) bool {
	return s.inference.CheckHealth(ctx)
}

// StartGame generates the opening situation and persists a new game.
func (s *gameServiceImpl) StartGame(ctx context.Context, input StartGameInput) (*models.GameView, error) {
	country := strings.TrimSpace(input.Country)
	if country == "" {
		return nil, displayError(ErrInvalidInput, msgCountryRequired)
	}
	log := s.logger.With(zap.String("country", country), zap.Int("year", input.Year))
	log.Info("Starting new game")

	// Генерация может занять до двух минут: отключение клиента не прерывает ее.
	ctx = context.WithoutCancel(ctx)

	if !s.inference.CheckHealth(ctx) {
		log.Warn("Inference server is not healthy, refusing to start game")
		return nil, displayError(ErrInferenceUnavailable, msgInferenceDownStart)
	}

	raw, err := s.inference.Complete(ctx, buildInitialPrompt(country, input.Year), initialSystemPrompt)
	if err != nil {
		log.Error("Initial situation generation failed", zap.Error(err))
		return nil, inferenceFailure(err, msgInferenceDownStart)
	}

	parsed := outcome.ParseInitialSituation(raw, country, input.Year)
	if parsed.Kind == outcome.Defaulted {
		log.Warn("Model output unusable, using fallback situation", zap.Error(parsed.Err), zap.Int("rawLength", len(raw)))
	}
	situation := parsed.Value

	game := &models.Game{
		UserID:      input.UserID,
		Country:     country,
		CountryCode: input.CountryCode,
		CurrentDate: strconv.Itoa(input.Year),
		Stats:       situation.Stats,
		NarrativeHistory: []models.NarrativeEntry{
			{Role: models.RoleSystem, Content: situation.Narrative, Timestamp: s.now()},
		},
		CurrentChoices: situation.Choices,
	}
	if err := s.games.Create(ctx, game); err != nil {
		log.Error("Failed to persist new game", zap.Error(err))
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.publish(ctx, messaging.GameStarted, game, parsed.Kind)
	log.Info("Game started", zap.Int64("gameID", game.ID), zap.Stringer("outcomeKind", parsed.Kind))

	view := game.View()
	return &view, nil
}

// MakeDecision applies the chosen option and advances the game by one turn.
// Concurrent decisions on the same game are not serialized: the last update wins.
func (s *gameServiceImpl) MakeDecision(ctx context.Context, gameID int64, choiceIndex int) (*DecisionResult, error) {
	log := s.logger.With(zap.Int64("gameID", gameID), zap.Int("choiceIndex", choiceIndex))
	ctx = context.WithoutCancel(ctx)

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			log.Info("Decision for unknown game")
			return nil, displayError(models.ErrGameNotFound, msgGameNotFound)
		}
		log.Error("Failed to load game", zap.Error(err))
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	if choiceIndex < 0 || choiceIndex >= len(game.CurrentChoices) {
		log.Info("Choice index out of range", zap.Int("choices", len(game.CurrentChoices)))
		return nil, displayError(ErrInvalidChoice, msgInvalidChoice)
	}
	choiceText := game.CurrentChoices[choiceIndex].Text

	if !s.inference.CheckHealth(ctx) {
		log.Warn("Inference server is not healthy, refusing decision")
		return nil, displayError(ErrInferenceUnavailable, msgInferenceDownDecision)
	}

	year, err := currentYear(game.CurrentDate)
	if err != nil {
		log.Error("Stored game date is not a year", zap.String("currentDate", game.CurrentDate))
		return nil, err
	}

	prompt := buildDecisionPrompt(game.Country, year, game.Stats, game.NarrativeHistory, choiceText)
	raw, err := s.inference.Complete(ctx, prompt, decisionSystemPrompt)
	if err != nil {
		log.Error("Decision outcome generation failed", zap.Error(err))
		return nil, inferenceFailure(err, msgInferenceDownDecision)
	}

	parsed := outcome.ParseDecisionOutcome(raw, game.Country, year, choiceText)
	if parsed.Kind == outcome.Defaulted {
		log.Warn("Model output unusable, using fallback outcome", zap.Error(parsed.Err), zap.Int("rawLength", len(raw)))
	}
	result := parsed.Value

	now := s.now()
	game.Stats = game.Stats.ApplyDeltas(result.StatChanges)
	game.NarrativeHistory = append(game.NarrativeHistory,
		models.NarrativeEntry{Role: models.RolePlayer, Content: "Décision: " + choiceText, Timestamp: now},
		models.NarrativeEntry{Role: models.RoleSystem, Content: result.Narrative, Timestamp: now},
	)
	game.CurrentDate = strconv.Itoa(result.NewYear)
	game.CurrentChoices = result.NewChoices

	if err := s.games.Update(ctx, game); err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			// Партию удалили, пока шла генерация.
			log.Warn("Game deleted during decision")
			return nil, displayError(models.ErrGameNotFound, msgGameNotFound)
		}
		log.Error("Failed to persist decision", zap.Error(err))
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	s.publish(ctx, messaging.GameAdvanced, game, parsed.Kind)
	log.Info("Decision applied", zap.String("newDate", game.CurrentDate), zap.Stringer("outcomeKind", parsed.Kind))

	return &DecisionResult{
		Game:             game.View(),
		OutcomeNarrative: result.Narrative,
		StatChanges:      result.StatChanges,
		Event:            result.Event,
	}, nil
}

func (s *gameServiceImpl) GetGame(ctx context.Context, gameID int64) (*models.GameView, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			return nil, displayError(models.ErrGameNotFound, msgGameNotFound)
		}
		s.logger.Error("Failed to load game", zap.Int64("gameID", gameID), zap.Error(err))
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	view := game.View()
	return &view, nil
}

func (s *gameServiceImpl) ListGames(ctx context.Context) ([]models.GameSummary, error) {
	games, err := s.games.ListRecent(ctx, RecentGamesLimit)
	if err != nil {
		s.logger.Error("Failed to list games", zap.Error(err))
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	if games == nil {
		games = []models.GameSummary{}
	}
	return games, nil
}

func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID int64) error {
	if err := s.games.Delete(ctx, gameID); err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			return displayError(models.ErrGameNotFound, msgGameNotFound)
		}
		s.logger.Error("Failed to delete game", zap.Int64("gameID", gameID), zap.Error(err))
		return fmt.Errorf("failed to delete game: %w", err)
	}
	s.publish(ctx, messaging.GameDeleted, &models.Game{ID: gameID}, outcome.Parsed)
	s.logger.Info("Game deleted", zap.Int64("gameID", gameID))
	return nil
}

// publish отправляет событие; ошибки только логируются.
func (s *gameServiceImpl) publish(ctx context.Context, eventType messaging.GameEventType, game *models.Game, kind outcome.Kind) {
	event := messaging.NewGameEvent(eventType, game)
	if eventType == messaging.GameDeleted {
		event.Stats = nil
	} else {
		event.OutcomeKind = kind.String()
	}
	if err := s.publisher.PublishGameEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish game event",
			zap.String("type", string(eventType)), zap.Int64("gameID", game.ID), zap.Error(err))
	}
}

// inferenceFailure сохраняет локализованную причину от клиента генерации, если она есть.
func inferenceFailure(err error, fallback string) error {
	message := fallback
	var unavailable *inference.UnavailableError
	if errors.As(err, &unavailable) && unavailable.Message != "" {
		message = unavailable.Message
	}
	return &DisplayError{Message: message, Err: fmt.Errorf("%w: %w", ErrInferenceUnavailable, err)}
}

// currentYear извлекает год из сохраненной даты партии ("1805", "1805 ap. J.-C.").
func currentYear(date string) (int, error) {
	match := yearPattern.FindString(date)
	if match == "" {
		return 0, fmt.Errorf("current date %q contains no year", date)
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("current date %q: %w", date, err)
	}
	return year, nil
}
