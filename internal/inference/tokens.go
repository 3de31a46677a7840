package inference

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// tokenCounter оценивает число токенов промпта.
// Словарь BPE загружается лениво при первом вызове; при ошибке подсчет отключается.
type tokenCounter struct {
	model   string
	enabled bool
	logger  *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newTokenCounter(model string, enabled bool, logger *zap.Logger) *tokenCounter {
	return &tokenCounter{model: model, enabled: enabled, logger: logger}
}

// Count returns the estimated token count, or -1 when counting is disabled or unavailable.
func (t *tokenCounter) Count(texts ...string) int {
	if t == nil || !t.enabled {
		return -1
	}
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			// Модели Ollama неизвестны tiktoken, берем базовую кодировку
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err != nil {
			t.logger.Warn("Token counting disabled", zap.Error(err))
			return
		}
		t.enc = enc
	})
	if t.enc == nil {
		return -1
	}
	total := 0
	for _, text := range texts {
		total += len(t.enc.Encode(text, nil, nil))
	}
	return total
}
