package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env           string `envconfig:"ENV" default:"development"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding   string `envconfig:"LOG_ENCODING" default:"json"`
	LogOutputPath string `envconfig:"LOG_OUTPUT_PATH" default:""` // пусто = stdout
	ServerPort    string `envconfig:"SERVER_PORT" default:"8000"`

	// Database
	DBHost         string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort         string        `envconfig:"DB_PORT" default:"5432"`
	DBUser         string        `envconfig:"DB_USER" default:"postgres"`
	DBName         string        `envconfig:"DB_NAME" default:"geopolitics"`
	DBSSLMode      string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns     int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout  time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	DBConnAttempts int           `envconfig:"DB_CONNECT_ATTEMPTS" default:"5"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Redis (сессии и rate limit)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	// JWT Settings - секретные поля БЕЗ envconfig тегов
	JWTSecret      string        `ignored:"true"`
	PasswordPepper string        `ignored:"true"`
	TokenTTL       time.Duration `envconfig:"JWT_TOKEN_TTL" default:"168h"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	// Rate limit для дорогих эндпоинтов (генерация и синтез речи)
	RateLimitPerMinute uint `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`

	// Inference
	InferenceProvider      string        `envconfig:"INFERENCE_PROVIDER" default:"ollama"`
	OllamaURL              string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaModel            string        `envconfig:"OLLAMA_MODEL" default:"ministral-3:3b"`
	OpenAIBaseURL          string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel            string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIAPIKey           string        `ignored:"true"`
	InferenceTimeout       time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"120s"`
	InferenceHealthTimeout time.Duration `envconfig:"INFERENCE_HEALTH_TIMEOUT" default:"5s"`
	InferenceCountTokens   bool          `envconfig:"INFERENCE_COUNT_TOKENS" default:"false"`

	// Speech synthesis
	TTSModelPath       string        `envconfig:"TTS_MODEL_PATH" default:"tts_models/fr_FR-siwis-medium.onnx"`
	TTSPiperBinary     string        `envconfig:"TTS_PIPER_BINARY" default:"piper"`
	TTSFallbackTimeout time.Duration `envconfig:"TTS_FALLBACK_TIMEOUT" default:"60s"`

	// RabbitMQ (пусто = публикация событий отключена)
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" default:""`
	GameEventsQueue string `envconfig:"GAME_EVENTS_QUEUE" default:"game_events"`

	// Каталог Docker Secrets
	SecretsDir string `envconfig:"SECRETS_DIR" default:"/run/secrets"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	// Убираем пробелы и разбиваем по запятой
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// DSN returns the PostgreSQL connection string.
// Учетные данные экранируются, пароль может содержать @, / и :.
func (c *Config) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return dsn.String()
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	// Загружаем НЕсекретные переменные из окружения
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	secrets := SecretReader{Dir: cfg.SecretsDir}

	// Обязательные секреты
	var loadErr error
	if cfg.DBPassword, loadErr = secrets.Read("db_password"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.JWTSecret, loadErr = secrets.Read("jwt_secret"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.PasswordPepper, loadErr = secrets.Read("password_pepper"); loadErr != nil {
		return nil, loadErr
	}

	// Необязательные секреты
	if pass, err := secrets.Read("redis_password"); err == nil {
		cfg.RedisPassword = pass
	} else {
		log.Printf("Optional secret 'redis_password' not found: %v. Assuming no password.", err)
	}
	if key, err := secrets.Read("openai_api_key"); err == nil {
		cfg.OpenAIAPIKey = key
	} else if cfg.InferenceProvider == "openai" {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("Configuration loaded successfully.")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.InferenceProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown INFERENCE_PROVIDER %q (expected ollama or openai)", c.InferenceProvider)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
