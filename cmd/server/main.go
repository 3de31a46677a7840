package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geopolitics-server/internal/config"
	"geopolitics-server/internal/database"
	"geopolitics-server/internal/handler"
	"geopolitics-server/internal/inference"
	"geopolitics-server/internal/logger"
	"geopolitics-server/internal/messaging"
	"geopolitics-server/internal/service"
	"geopolitics-server/internal/speech"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.OptionsFrom(cfg))
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgPool, err := database.Connect(ctx, database.PoolConfig{
		DSN:         cfg.DSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		Attempts:    cfg.DBConnAttempts,
		RetryDelay:  3 * time.Second,
	}, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := database.ApplyMigrations(pgPool, log); err != nil {
		zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
	}

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	var publisher messaging.GamePublisher = messaging.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		mqConn, err := messaging.Connect(cfg.RabbitMQURL, 10, 5*time.Second, log)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		// Паблишер владеет соединением и переподключается после разрыва
		publisher, err = messaging.NewRabbitMQGamePublisher(mqConn, cfg.RabbitMQURL, cfg.GameEventsQueue, log)
		if err != nil {
			zap.L().Fatal("Failed to create game event publisher", zap.Error(err))
		}
	} else {
		zap.L().Info("RABBITMQ_URL not set, game events are not published")
	}
	defer publisher.Close()

	// --- Dependency Injection ---
	inferenceClient, err := inference.New(inferenceConfig(cfg), log)
	if err != nil {
		zap.L().Fatal("Failed to create inference client", zap.Error(err))
	}

	gameRepo := database.NewPgGameRepository(pgPool, log)
	userRepo := database.NewPgUserRepository(pgPool, log)
	tokenRepo := database.NewRedisTokenRepository(redisClient, log)

	gameSvc := service.NewGameService(gameRepo, inferenceClient, publisher, log)
	authSvc := service.NewAuthService(userRepo, tokenRepo, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		PasswordPepper: cfg.PasswordPepper,
		TokenTTL:       cfg.TokenTTL,
	}, log)

	synthesizer := speech.New(speech.Config{
		ModelPath:       cfg.TTSModelPath,
		PiperBinary:     cfg.TTSPiperBinary,
		FallbackTimeout: cfg.TTSFallbackTimeout,
	}, log)
	if !synthesizer.ModelAvailable() {
		zap.L().Warn("Voice model not found, /tts will fail until it is downloaded", zap.String("path", cfg.TTSModelPath))
	}

	// Rate limit: генерация и синтез речи дорогие, ключ - IP клиента.
	rateLimitStore := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: redisClient,
		Rate:        time.Minute,
		Limit:       cfg.RateLimitPerMinute,
	})
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "Trop de requêtes. Réessayez dans " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	h := handler.NewHandler(gameSvc, authSvc, synthesizer, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}
	router := newRouter(cfg, h, rateLimitMiddleware, log)

	// --- Start HTTP Server ---
	// WriteTimeout покрывает генерацию (до INFERENCE_TIMEOUT) и запасной путь Piper.
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.InferenceTimeout + cfg.InferenceHealthTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server",
		zap.String("port", cfg.ServerPort),
		zap.String("inferenceProvider", cfg.InferenceProvider),
		zap.String("model", inferenceClient.Model()),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

func inferenceConfig(cfg *config.Config) inference.Config {
	ic := inference.Config{
		Provider:      cfg.InferenceProvider,
		BaseURL:       cfg.OllamaURL,
		Model:         cfg.OllamaModel,
		Timeout:       cfg.InferenceTimeout,
		HealthTimeout: cfg.InferenceHealthTimeout,
		CountTokens:   cfg.InferenceCountTokens,
	}
	if cfg.InferenceProvider == inference.ProviderOpenAI {
		ic.BaseURL = cfg.OpenAIBaseURL
		ic.Model = cfg.OpenAIModel
		ic.APIKey = cfg.OpenAIAPIKey
	}
	return ic
}

// setupRedis initializes the Redis client with retry logic.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	zap.L().Info("Redis connection options configured", zap.String("address", redisOpts.Addr), zap.Int("db", redisOpts.DB))

	var lastErr error
	maxRetries := 20
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		client := redis.NewClient(redisOpts)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis connection aborted: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
