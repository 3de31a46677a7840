// Package inference talks to the text-generation server that drives the simulation.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// Провайдеры генерации текста.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ErrUnavailable is wrapped by every error returned from Complete when the
// inference server could not produce an answer.
var ErrUnavailable = errors.New("inference server unavailable")

// UnavailableError carries a human-readable, localized reason.
type UnavailableError struct {
	Message string
	Err     error
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

// Client is the contract the orchestrator depends on.
type Client interface {
	// CheckHealth reports whether the server answers a listing call within the health timeout.
	CheckHealth(ctx context.Context) bool
	// Complete sends one non-streaming request asking for JSON output and returns the raw text.
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
	// Model returns the configured model name.
	Model() string
}

// Config описывает подключение к серверу генерации.
type Config struct {
	Provider      string
	BaseURL       string
	Model         string
	APIKey        string
	Timeout       time.Duration
	HealthTimeout time.Duration
	CountTokens   bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = 5 * time.Second
	}
	return c
}

// New создает клиента для выбранного провайдера.
func New(cfg Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "", ProviderOllama:
		return NewOllamaClient(cfg, logger)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный провайдер генерации: '%s'", cfg.Provider)
	}
}

// statusCoder извлекает HTTP-статус из ошибки конкретного SDK.
type statusCoder func(err error) (int, bool)

// classifyError превращает транспортную ошибку в UnavailableError с понятным сообщением.
func classifyError(displayName string, err error, status statusCoder) *UnavailableError {
	if code, ok := status(err); ok {
		return &UnavailableError{Message: fmt.Sprintf("%s returned status %d", displayName, code), Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &UnavailableError{
			Message: fmt.Sprintf("Délai d'attente dépassé pour la réponse d'%s", displayName),
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		msg := fmt.Sprintf("Impossible de se connecter à %s.", displayName)
		if displayName == "Ollama" {
			msg += " Assurez-vous qu'Ollama est démarré avec 'ollama serve'"
		}
		return &UnavailableError{Message: msg, Err: err}
	}

	return &UnavailableError{Message: fmt.Sprintf("Erreur %s: %v", displayName, err), Err: err}
}
