package handler

import (
	"net/http"
	"strconv"

	"geopolitics-server/internal/middleware"
	"geopolitics-server/internal/models"
	"geopolitics-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok", Message: "Geopolitical Simulation API"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (h *Handler) inferenceHealth(c *gin.Context) {
	if h.games.InferenceHealthy(c.Request.Context()) {
		c.JSON(http.StatusOK, models.StatusResponse{Status: "ok", Message: "Ollama is running"})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "error", Message: "Ollama is not available. Run 'ollama serve' to start it."})
}

// startGame всегда отвечает 200: ошибки передаются в поле error.
func (h *Handler) startGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: bindErrorDetail(err)})
		return
	}

	userID := req.UserID
	if authUserID, ok := middleware.UserIDFromContext(c); ok {
		userID = &authUserID
	}

	view, err := h.games.StartGame(c.Request.Context(), service.StartGameInput{
		Country:     req.Country,
		CountryCode: req.CountryCode,
		Year:        *req.Year,
		UserID:      userID,
	})
	if err != nil {
		c.JSON(http.StatusOK, startGameResponse{Success: false, Error: gameplayError(h.logger, "start_game", err)})
		return
	}
	gameplayRequestsTotal.WithLabelValues("start_game", "success").Inc()
	c.JSON(http.StatusOK, startGameResponse{Success: true, Game: view})
}

func (h *Handler) makeDecision(c *gin.Context) {
	var req makeDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: bindErrorDetail(err)})
		return
	}

	res, err := h.games.MakeDecision(c.Request.Context(), *req.GameID, *req.ChoiceIndex)
	if err != nil {
		c.JSON(http.StatusOK, decisionResponse{Success: false, Error: gameplayError(h.logger, "make_decision", err)})
		return
	}
	gameplayRequestsTotal.WithLabelValues("make_decision", "success").Inc()
	c.JSON(http.StatusOK, decisionResponse{
		Success:          true,
		Game:             &res.Game,
		OutcomeNarrative: res.OutcomeNarrative,
		StatChanges:      res.StatChanges,
		Event:            res.Event,
	})
}

func (h *Handler) getGame(c *gin.Context) {
	gameID, ok := h.gameIDParam(c)
	if !ok {
		return
	}
	view, err := h.games.GetGame(c.Request.Context(), gameID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listGames(c *gin.Context) {
	games, err := h.games.ListGames(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *Handler) deleteGame(c *gin.Context) {
	gameID, ok := h.gameIDParam(c)
	if !ok {
		return
	}
	if err := h.games.DeleteGame(c.Request.Context(), gameID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Message: "Partie supprimée"})
}

func (h *Handler) gameIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("game_id")
	gameID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Debug("Invalid game id in path", zap.String("game_id", raw))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Identifiant de partie invalide"})
		return 0, false
	}
	return gameID, true
}
