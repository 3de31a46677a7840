package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient реализует Client для OpenAI-совместимых серверов (/models, /chat/completions).
type OpenAIClient struct {
	client        *openaigo.Client
	model         string
	timeout       time.Duration
	healthTimeout time.Duration
	tokens        *tokenCounter
	logger        *zap.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient создает клиента go-openai с заданным BaseURL.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("OpenAI base URL is empty")
	}

	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	openaiConfig.HTTPClient = &http.Client{}

	log := logger.Named("OpenAIClient")
	log.Info("OpenAI client created",
		zap.String("baseURL", openaiConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &OpenAIClient{
		client:        openaigo.NewClientWithConfig(openaiConfig),
		model:         cfg.Model,
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		tokens:        newTokenCounter(cfg.Model, cfg.CountTokens, log),
		logger:        log,
	}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) CheckHealth(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.client.ListModels(healthCtx)
	observeRequest(ProviderOpenAI, c.model, operationHealth, err, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("OpenAI health check failed", zap.Error(err))
		return false
	}
	return true
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]openaigo.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: prompt})

	if n := c.tokens.Count(systemPrompt, prompt); n >= 0 {
		promptTokens.WithLabelValues(ProviderOpenAI, c.model).Observe(float64(n))
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(requestCtx, openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	duration := time.Since(start)
	observeRequest(ProviderOpenAI, c.model, operationComplete, err, duration.Seconds())

	if err != nil {
		c.logger.Error("OpenAI chat completion failed", zap.Error(err), zap.Duration("duration", duration))
		return "", classifyError("OpenAI", err, openaiStatus)
	}

	if resp.Usage.CompletionTokens > 0 {
		completionTokens.WithLabelValues(ProviderOpenAI, c.model).Observe(float64(resp.Usage.CompletionTokens))
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("OpenAI returned no choices", zap.Duration("duration", duration))
		return "", classifyError("OpenAI", errIncompleteResponse, openaiStatus)
	}
	text := resp.Choices[0].Message.Content
	c.logger.Info("OpenAI response received", zap.Duration("duration", duration), zap.Int("responseBytes", len(text)))
	return text, nil
}

func openaiStatus(err error) (int, bool) {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
