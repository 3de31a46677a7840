package handler

import (
	"errors"
	"net/http"

	"geopolitics-server/internal/models"
	"geopolitics-server/internal/speech"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) textToSpeech(c *gin.Context) {
	var req ttsRequest
	// Тело без поля text обрабатывается как пустой текст.
	_ = c.ShouldBindJSON(&req)

	audio, err := h.speech.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrEmptyText):
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Text is required"})
		case errors.Is(err, speech.ErrModelNotFound):
			h.logger.Error("Voice model missing", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "TTS model not available. Please download the French voice model."})
		default:
			h.logger.Error("Speech synthesis failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "TTS generation failed: " + err.Error()})
		}
		return
	}

	speechBytesTotal.Add(float64(len(audio)))
	c.Header("Content-Disposition", "inline; filename=speech.wav")
	c.Data(http.StatusOK, "audio/wav", audio)
}
