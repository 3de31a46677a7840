package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"geopolitics-server/internal/models"
	"geopolitics-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const msgInternalError = "Erreur serveur: erreur interne"

// handleServiceError переводит ошибку сервиса в HTTP-статус и тело {detail}.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	message, hasMessage := service.DisplayMessage(err)

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidChoice),
		errors.Is(err, models.ErrUserAlreadyExists):
		statusCode = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, models.ErrGameNotFound), errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, service.ErrInferenceUnavailable):
		statusCode = http.StatusServiceUnavailable
	default:
		logger.Error("Unhandled internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		statusCode = http.StatusInternalServerError
		message, hasMessage = msgInternalError, true
	}
	if !hasMessage {
		message = err.Error()
	}
	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Detail: message})
}

// gameplayError возвращает текст ошибки для ответов success:false.
// Внутренние детали остаются только в логах.
func gameplayError(logger *zap.Logger, operation string, err error) string {
	if message, ok := service.DisplayMessage(err); ok {
		gameplayRequestsTotal.WithLabelValues(operation, "rejected").Inc()
		return message
	}
	gameplayRequestsTotal.WithLabelValues(operation, "error").Inc()
	logger.Error("Gameplay request failed", zap.String("operation", operation), zap.Error(err))
	return msgInternalError
}

// bindErrorDetail формирует detail для ошибок разбора и валидации тела запроса.
func bindErrorDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return "Champs invalides: " + strings.Join(fields, ", ")
	}
	return "Requête invalide: " + err.Error()
}
