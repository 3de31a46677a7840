// Package handler exposes the simulation over HTTP.
package handler

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"geopolitics-server/internal/middleware"
	"geopolitics-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerTagNameOnce sync.Once

// SpeechSynthesizer turns narration text into a WAV file.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler groups the HTTP endpoints of the server.
type Handler struct {
	games  service.GameService
	auth   service.AuthService
	speech SpeechSynthesizer
	logger *zap.Logger
}

func NewHandler(games service.GameService, auth service.AuthService, speech SpeechSynthesizer, logger *zap.Logger) *Handler {
	registerTagNameOnce.Do(useJSONFieldNames)
	return &Handler{
		games:  games,
		auth:   auth,
		speech: speech,
		logger: logger.Named("Handler"),
	}
}

// RegisterRoutes mounts every endpoint. expensive wraps the routes that call
// the inference server or Piper (rate limiting); it may be nil.
func (h *Handler) RegisterRoutes(router *gin.Engine, expensive gin.HandlerFunc) {
	verifier := middleware.TokenVerifier(h.auth.VerifyToken)
	requireAuth := middleware.AuthMiddleware(verifier, h.logger, false)
	optionalAuth := middleware.AuthMiddleware(verifier, h.logger, true)

	withLimit := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if expensive == nil {
			return handlers
		}
		return append([]gin.HandlerFunc{expensive}, handlers...)
	}

	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/health/ollama", h.inferenceHealth)

	router.POST("/tts", withLimit(h.textToSpeech)...)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/me", optionalAuth, h.getMe)
		authGroup.POST("/logout", requireAuth, h.logout)
	}

	router.POST("/start_game", withLimit(optionalAuth, h.startGame)...)
	router.POST("/make_decision", withLimit(optionalAuth, h.makeDecision)...)

	gamesGroup := router.Group("/games")
	{
		gamesGroup.GET("", h.listGames)
		gamesGroup.GET("/:game_id", h.getGame)
		gamesGroup.DELETE("/:game_id", h.deleteGame)
	}
}

// useJSONFieldNames заставляет валидатор gin сообщать имена полей из json-тегов.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
