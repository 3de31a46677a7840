// Package speech synthesizes narration audio with the Piper voice engine.
package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

const defaultSampleRate = 22050

var (
	ErrEmptyText       = errors.New("text is required")
	ErrModelNotFound   = errors.New("voice model not found")
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Config описывает голосовую модель и бинарник Piper.
type Config struct {
	ModelPath       string
	PiperBinary     string
	FallbackTimeout time.Duration
	// TempDir - каталог для временных WAV-файлов; пусто означает os.TempDir().
	TempDir string
}

// Synthesizer turns text into WAV bytes. It keeps no state between calls.
type Synthesizer struct {
	modelPath       string
	binary          string
	fallbackTimeout time.Duration
	tempDir         string
	logger          *zap.Logger
}

// New creates a Synthesizer. The model path is resolved once, at startup.
func New(cfg Config, logger *zap.Logger) *Synthesizer {
	binary := cfg.PiperBinary
	if binary == "" {
		binary = "piper"
	}
	timeout := cfg.FallbackTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Synthesizer{
		modelPath:       cfg.ModelPath,
		binary:          binary,
		fallbackTimeout: timeout,
		tempDir:         cfg.TempDir,
		logger:          logger.Named("Speech"),
	}
}

// ModelAvailable reports whether the voice model file exists.
func (s *Synthesizer) ModelAvailable() bool {
	info, err := os.Stat(s.modelPath)
	return err == nil && !info.IsDir()
}

// Synthesize returns a complete WAV file for text.
// The raw-PCM path is tried first; on failure Piper writes the WAV file itself.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !s.ModelAvailable() {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, s.modelPath)
	}

	audioData, err := s.synthesizeRaw(ctx, text)
	if err == nil {
		return audioData, nil
	}
	s.logger.Warn("Raw Piper synthesis failed, falling back to file output", zap.Error(err))

	audioData, err = s.synthesizeFile(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	return audioData, nil
}

// synthesizeRaw читает 16-битный моно PCM из stdout и кодирует WAV в процессе.
func (s *Synthesizer) synthesizeRaw(ctx context.Context, text string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.fallbackTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, s.binary, "--model", s.modelPath, "--output_raw")
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper --output_raw: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() < 2 {
		return nil, errors.New("piper produced no audio samples")
	}

	sampleRate := s.sampleRate()
	data, err := s.encodeWAV(stdout.Bytes(), sampleRate)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Speech synthesized",
		zap.Int("textBytes", len(text)),
		zap.Int("wavBytes", len(data)),
		zap.Int("sampleRate", sampleRate),
		zap.Duration("duration", time.Since(start)))
	return data, nil
}

// encodeWAV пишет PCM через временный файл: энкодеру нужен io.WriteSeeker.
func (s *Synthesizer) encodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	tmp, err := os.CreateTemp(s.tempDir, "speech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp wav: %w", err)
	}
	return io.ReadAll(tmp)
}

// synthesizeFile - запасной путь: Piper сам пишет WAV во временный файл.
func (s *Synthesizer) synthesizeFile(ctx context.Context, text string) ([]byte, error) {
	tmp, err := os.CreateTemp(s.tempDir, "speech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	outputPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outputPath)

	runCtx, cancel := context.WithTimeout(ctx, s.fallbackTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, s.binary, "--model", s.modelPath, "--output_file", outputPath)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("piper timed out after %s", s.fallbackTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("Piper TTS failed: %s", msg)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil || len(data) == 0 {
		return nil, errors.New("Piper did not generate audio output")
	}
	return data, nil
}

// sampleRate читает audio.sample_rate из <model>.json рядом с моделью.
func (s *Synthesizer) sampleRate() int {
	raw, err := os.ReadFile(s.modelPath + ".json")
	if err != nil {
		return defaultSampleRate
	}
	var cfg struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		s.logger.Warn("Invalid voice model config, using default sample rate", zap.String("path", s.modelPath+".json"))
		return defaultSampleRate
	}
	return cfg.Audio.SampleRate
}
