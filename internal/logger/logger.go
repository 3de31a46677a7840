// Package logger builds the zap logger shared by the whole server.
package logger

import (
	"fmt"
	"strings"

	"geopolitics-server/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName попадает в поле service каждой записи.
const ServiceName = "geopolitics-server"

// Options describes where and how the server writes its logs.
type Options struct {
	Level      string // debug, info, warn, error
	Encoding   string // json или console
	OutputPath string // пусто = stdout
	Env        string
}

// OptionsFrom переносит настройки логирования из конфигурации приложения.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutputPath,
		Env:        cfg.Env,
	}
}

// New builds the logger. In development it adds caller info, stacktraces from
// warn level and colored console levels; elsewhere repeated entries are sampled.
// Every entry carries the service and env fields.
func New(opts Options) (*zap.Logger, error) {
	levelText := strings.ToLower(strings.TrimSpace(opts.Level))
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", opts.Level, err)
	}

	encoding := strings.ToLower(opts.Encoding)
	if encoding != "console" {
		encoding = "json"
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	development := opts.Env == "development"
	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       development,
		DisableCaller:     !development,
		DisableStacktrace: !development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(development, encoding),
		OutputPaths:       []string{outputPath},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields: map[string]interface{}{
			"service": ServiceName,
			"env":     opts.Env,
		},
	}
	if !development {
		// Повторяющиеся записи (например, rate limit) режутся после первых 100 в секунду
		zapConfig.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func encoderConfig(development bool, encoding string) zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	if development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if development && encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return encoderCfg
}
