// Package logger provides structured logging for Stratus.
//
// Loggers are constructed once and handed to components by injection.
// Nothing in this package mutates zap's global state, so several
// configuration stores can coexist in one process without clobbering
// each other's logging setup.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents logger configuration.
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// DefaultConfig returns the configuration used when nothing is
// specified: info-level JSON to stdout.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Encoding: "json",
	}
}

// New creates a zap logger from the configuration. The encoder emits a
// fixed field set: timestamp (ISO8601), logger name, level, and message.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Development {
		log = log.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return log, nil
}

// ParseLevel converts a level name to a zapcore.Level, falling back to
// info for unknown names. Names are matched case-insensitively, so the
// INFO/DEBUG spellings that appear in pipeline configs work unchanged.
func ParseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
