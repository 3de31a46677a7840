package handler

import (
	"net/http"
	"strconv"

	"geopolitics-server/internal/middleware"
	"geopolitics-server/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: bindErrorDetail(err)})
		return
	}

	user, td, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	registrationsTotal.Inc()
	c.JSON(http.StatusOK, authResponse{Success: true, User: user.Summary(), Token: td.Token})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: bindErrorDetail(err)})
		return
	}

	user, td, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Success: true, User: user.Summary(), Token: td.Token})
}

// getMe возвращает пользователя из ?user_id=, а без параметра - владельца токена.
func (h *Handler) getMe(c *gin.Context) {
	var userID int64
	if raw, ok := c.GetQuery("user_id"); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Identifiant utilisateur invalide"})
			return
		}
		userID = id
	} else if id, ok := middleware.UserIDFromContext(c); ok {
		userID = id
	} else {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Non authentifié"})
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.Summary())
}

func (h *Handler) logout(c *gin.Context) {
	tokenID := c.GetString(models.TokenIDContextKey)
	if err := h.auth.Logout(c.Request.Context(), tokenID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}
