package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"geopolitics-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier проверяет строку токена и возвращает claims.
// Ошибки: models.ErrTokenInvalid, models.ErrTokenExpired, models.ErrTokenMalformed, models.ErrTokenNotFound.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware проверяет bearer-токен и кладет user_id и token_id в контекст gin.
// При optional=true запрос без заголовка или с непригодным токеном пропускается
// анонимно: такие роуты отвечают одинаково для гостей и пользователей.
func AuthMiddleware(verifier TokenVerifier, logger *zap.Logger, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.With(zap.String("path", c.Request.URL.Path))

		if c.GetHeader("Authorization") == "" && optional {
			c.Next()
			return
		}

		tokenString, ok := BearerToken(c)
		if !ok {
			if optional {
				log.Info("Malformed Authorization header, continuing anonymously")
				c.Next()
				return
			}
			log.Warn("Authorization header missing or malformed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Non authentifié"})
			return
		}

		claims, err := verifier(c.Request.Context(), tokenString)
		if err != nil {
			if optional {
				log.Info("Token rejected, continuing anonymously", zap.Error(err))
				c.Next()
				return
			}
			abortWithTokenError(c, log, err)
			return
		}

		c.Set(models.UserIDContextKey, claims.UserID)
		c.Set(models.TokenIDContextKey, claims.ID)
		log.Debug("User authorized", zap.Int64("user_id", claims.UserID))
		c.Next()
	}
}

func abortWithTokenError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrTokenExpired):
		log.Info("Token expired")
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Session expirée"})
	case errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed),
		errors.Is(err, models.ErrTokenNotFound):
		log.Warn("Token verification failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Session invalide"})
	default:
		log.Error("Unexpected token verification error", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "Erreur serveur: erreur interne"})
	}
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(models.UserIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
