package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*OllamaClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOllamaClient(Config{BaseURL: srv.URL, Model: "ministral-3:3b", Timeout: timeout, HealthTimeout: timeout}, zap.NewNop())
	require.NoError(t, err)
	return c, srv
}

func TestOllamaClient_CheckHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tags", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"ministral-3:3b"}]}`))
		}, time.Second)
		assert.True(t, c.CheckHealth(context.Background()))
	})

	t.Run("non-200", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		}, time.Second)
		assert.False(t, c.CheckHealth(context.Background()))
	})

	t.Run("server down", func(t *testing.T) {
		c, srv := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {}, time.Second)
		srv.Close()
		assert.False(t, c.CheckHealth(context.Background()))
	})
}

func TestOllamaClient_Complete(t *testing.T) {
	c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ministral-3:3b", body["model"])
		assert.Equal(t, "Décris la France", body["prompt"])
		assert.Equal(t, "Tu es un maître du jeu", body["system"])
		assert.Equal(t, "json", body["format"])
		assert.Equal(t, false, body["stream"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"ministral-3:3b","response":"{\"narrative\":\"ok\"}","done":true,"eval_count":12}`))
	}, time.Second)

	text, err := c.Complete(context.Background(), "Décris la France", "Tu es un maître du jeu")
	require.NoError(t, err)
	assert.Equal(t, `{"narrative":"ok"}`, text)
	assert.Equal(t, "ministral-3:3b", c.Model())
}

func TestOllamaClient_CompleteErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
		}, time.Second)

		_, err := c.Complete(context.Background(), "p", "s")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Equal(t, "Ollama returned status 503", err.Error())
	})

	t.Run("500 without body", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, time.Second)

		text, err := c.Complete(context.Background(), "p", "s")
		require.Error(t, err)
		assert.Empty(t, text)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Equal(t, "Ollama returned status 500", err.Error())
	})

	t.Run("stream without final message", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = w.Write([]byte(`{"model":"ministral-3:3b","response":"{\"narr","done":false}` + "\n"))
		}, time.Second)

		_, err := c.Complete(context.Background(), "p", "s")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Equal(t, "Erreur Ollama: réponse incomplète", err.Error())
	})

	t.Run("timeout", func(t *testing.T) {
		c, _ := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, 50*time.Millisecond)

		_, err := c.Complete(context.Background(), "p", "s")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.Equal(t, "Délai d'attente dépassé pour la réponse d'Ollama", err.Error())
	})

	t.Run("connection refused", func(t *testing.T) {
		c, srv := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {}, time.Second)
		srv.Close()

		_, err := c.Complete(context.Background(), "p", "s")
		require.Error(t, err)
		var unavailable *UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, "Impossible de se connecter à Ollama. Assurez-vous qu'Ollama est démarré avec 'ollama serve'", unavailable.Message)
	})
}

func TestNew_SelectsProvider(t *testing.T) {
	c, err := New(Config{Provider: ProviderOllama, BaseURL: "http://localhost:11434/v1/", Model: "m"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)

	c, err = New(Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:8080/v1", Model: "m"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = New(Config{Provider: "llamacpp"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewOllamaClient(Config{BaseURL: "localhost"}, zap.NewNop())
	assert.Error(t, err)
}

func TestTokenCounter_DisabledReturnsMinusOne(t *testing.T) {
	assert.Equal(t, -1, newTokenCounter("m", false, zap.NewNop()).Count("bonjour"))
	var nilCounter *tokenCounter
	assert.Equal(t, -1, nilCounter.Count("bonjour"))
}
