package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// jsonFormat просит Ollama вернуть валидный JSON.
var jsonFormat = json.RawMessage(`"json"`)

// OllamaClient реализует Client поверх нативного API Ollama (/api/tags, /api/generate).
type OllamaClient struct {
	client        *api.Client
	model         string
	timeout       time.Duration
	healthTimeout time.Duration
	tokens        *tokenCounter
	logger        *zap.Logger
}

var _ Client = (*OllamaClient)(nil)

// NewOllamaClient создает клиента Ollama. BaseURL указывается без суффикса /v1.
func NewOllamaClient(cfg Config, logger *zap.Logger) (*OllamaClient, error) {
	cfg = cfg.withDefaults()

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("некорректный Ollama Base URL '%s'", baseURL)
	}

	log := logger.Named("OllamaClient")
	log.Info("Ollama client created",
		zap.String("baseURL", baseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &OllamaClient{
		// Таймауты задаются через контекст каждого вызова
		client:        api.NewClient(parsedURL, &http.Client{Transport: statusTransport{base: http.DefaultTransport}}),
		model:         cfg.Model,
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		tokens:        newTokenCounter(cfg.Model, cfg.CountTokens, log),
		logger:        log,
	}, nil
}

func (c *OllamaClient) Model() string { return c.model }

func (c *OllamaClient) CheckHealth(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.client.List(healthCtx)
	observeRequest(ProviderOllama, c.model, operationHealth, err, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("Ollama health check failed", zap.Error(err))
		return false
	}
	return true
}

func (c *OllamaClient) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: &stream,
		Format: jsonFormat,
	}

	if n := c.tokens.Count(systemPrompt, prompt); n >= 0 {
		promptTokens.WithLabelValues(ProviderOllama, c.model).Observe(float64(n))
		c.logger.Debug("Estimated prompt tokens", zap.Int("tokens", n))
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Sending generate request",
		zap.String("model", c.model),
		zap.Int("promptBytes", len(prompt)),
		zap.Int("systemPromptBytes", len(systemPrompt)))

	start := time.Now()
	var text strings.Builder
	var final api.GenerateResponse
	err := c.client.Generate(requestCtx, req, func(r api.GenerateResponse) error {
		text.WriteString(r.Response)
		final = r
		return nil
	})
	duration := time.Since(start)
	if err == nil && !final.Done {
		// Сервер закрыл поток, не прислав финальный ответ
		err = errIncompleteResponse
	}
	observeRequest(ProviderOllama, c.model, operationComplete, err, duration.Seconds())

	if err != nil {
		unavailable := classifyError("Ollama", err, ollamaStatus)
		c.logger.Error("Ollama generate failed", zap.Error(err), zap.Duration("duration", duration))
		return "", unavailable
	}

	if final.EvalCount > 0 {
		completionTokens.WithLabelValues(ProviderOllama, c.model).Observe(float64(final.EvalCount))
	}
	c.logger.Info("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("responseBytes", text.Len()),
		zap.Int("promptEvalCount", final.PromptEvalCount),
		zap.Int("evalCount", final.EvalCount))
	return text.String(), nil
}

var errIncompleteResponse = errors.New("réponse incomplète")

// httpStatusError возвращается statusTransport для ответов с кодом >= 400.
type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// statusTransport превращает ответы с кодом >= 400 в ошибку.
// Клиент Ollama читает тело как поток и теряет код ответа.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func ollamaStatus(err error) (int, bool) {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) {
		return statusErrPtr.StatusCode, true
	}
	return 0, false
}
