package main

import (
	"time"

	"geopolitics-server/internal/config"
	"geopolitics-server/internal/handler"
	"geopolitics-server/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// newRouter собирает gin.Engine: логирование, recovery, метрики, CORS и роуты.
func newRouter(cfg *config.Config, h *handler.Handler, rateLimit gin.HandlerFunc, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	// Prometheus middleware должен быть подключен ДО регистрации роутов,
	// иначе gin не добавит его в цепочки уже зарегистрированных обработчиков.
	p := ginprometheus.NewPrometheus("gin")
	p.ReqCntURLLabelMappingFn = routeLabel
	p.Use(router)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	h.RegisterRoutes(router, rateLimit)
	return router
}

// routeLabel использует шаблон маршрута (/games/:game_id), чтобы id партий не раздували метрики.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
